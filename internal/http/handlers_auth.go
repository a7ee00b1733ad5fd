package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"terptracker/internal/auth"
	"terptracker/internal/core"
	"terptracker/internal/log"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")

	cred, err := s.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Login lookup failed",
			log.FieldOperation, log.OpLogin,
			log.FieldUserEmail, email,
			log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if cred == nil {
		addFlash(w, r, "Email does not exist", "error")
		s.render(w, r, "login.html", nil)
		return
	}
	if !auth.CheckPassword(cred.PasswordHash, password) {
		addFlash(w, r, "Incorrect password, try again.", "error")
		s.render(w, r, "login.html", nil)
		return
	}

	if err := s.establishSession(w, cred.UserID); err != nil {
		s.logger.ErrorContext(r.Context(), "Session issue failed",
			log.FieldOperation, log.OpLogin,
			log.FieldUserID, cred.UserID,
			log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.logger.InfoContext(r.Context(), "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, cred.UserID,
		log.FieldUserEmail, cred.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	addFlash(w, r, "You've been logged out.", "success")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "sign_up.html", nil)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	input := core.SignUpInput{
		Email:     strings.TrimSpace(r.Form.Get("email")),
		FirstName: strings.TrimSpace(r.Form.Get("firstName")),
		Password1: r.Form.Get("password1"),
		Password2: r.Form.Get("password2"),
	}

	// The existence check runs first, matching the order errors are shown
	// to the user. It is not atomic with the insert; concurrent sign-ups
	// with the same email can race.
	existing, err := s.users.GetUserByEmail(r.Context(), input.Email)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Sign-up lookup failed",
			log.FieldOperation, log.OpSignUp,
			log.FieldUserEmail, input.Email,
			log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		addFlash(w, r, "Email already exists", "error")
		s.render(w, r, "sign_up.html", nil)
		return
	}
	if err := input.Validate(); err != nil {
		addFlash(w, r, err.Error(), "error")
		s.render(w, r, "sign_up.html", nil)
		return
	}

	hash, err := auth.HashPassword(input.Password1)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Password hash failed",
			log.FieldOperation, log.OpSignUp,
			log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cred := core.Credential{
		UserID:       uuid.NewString(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		PasswordHash: hash,
	}
	if err := s.users.PutUser(r.Context(), cred); err != nil {
		s.logger.ErrorContext(r.Context(), "User insert failed",
			log.FieldOperation, log.OpSignUp,
			log.FieldUserEmail, input.Email,
			log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := s.establishSession(w, cred.UserID); err != nil {
		s.logger.ErrorContext(r.Context(), "Session issue failed",
			log.FieldOperation, log.OpSignUp,
			log.FieldUserID, cred.UserID,
			log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.logger.InfoContext(r.Context(), "Account created",
		log.FieldOperation, log.OpSignUp,
		log.FieldUserID, cred.UserID,
		log.FieldUserEmail, cred.Email)
	addFlash(w, r, "Account created!", "success")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) establishSession(w http.ResponseWriter, userID string) error {
	token, err := s.sessions.Issue(userID)
	if err != nil {
		return err
	}
	s.sessions.SetCookie(w, token)
	return nil
}
