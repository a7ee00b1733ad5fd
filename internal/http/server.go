package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"terptracker/internal/auth"
	"terptracker/internal/config"
	"terptracker/internal/core"
	"terptracker/internal/log"
	appweb "terptracker/web"
)

// UserStore is the slice of the data facade the auth handlers need.
type UserStore interface {
	PutUser(ctx context.Context, cred core.Credential) error
	GetUser(ctx context.Context, userID string) (*core.Credential, error)
	GetUserByEmail(ctx context.Context, email string) (*core.Credential, error)
}

// ExpenseStore is the slice of the data facade the expense and reporting
// handlers need.
type ExpenseStore interface {
	PutExpense(ctx context.Context, rec core.ExpenseRecord) error
	QueryMonth(ctx context.Context, userEmail string, window core.MonthWindow) ([]core.ExpenseRecord, error)
}

// ExportPublisher queues a stored expense for export. A nil publisher
// disables exporting.
type ExportPublisher interface {
	PublishExpenseExport(ctx context.Context, userEmail, expenseTimestamp string) error
}

type Server struct {
	http.Server
	templates   *template.Template
	users       UserStore
	expenses    ExpenseStore
	publisher   ExportPublisher
	sessions    *auth.Sessions
	rateLimiter *rateLimiter
	logger      *log.Logger

	shutdownOnce sync.Once
}

// route maps one method+path pair to a handler. Protected routes require an
// authenticated session.
type route struct {
	method    string
	pattern   string
	handler   http.HandlerFunc
	protected bool
}

func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/login", s.handleLoginPage, false},
		{http.MethodPost, "/login", s.handleLogin, false},
		{http.MethodGet, "/logout", s.handleLogout, true},
		{http.MethodGet, "/sign-up", s.handleSignUpPage, false},
		{http.MethodPost, "/sign-up", s.handleSignUp, false},
		{http.MethodGet, "/{$}", s.handleHomePage, true},
		{http.MethodPost, "/{$}", s.handleSubmitExpense, true},
		{http.MethodGet, "/task_status/{task_id}", s.handleTaskStatus, true},
		{http.MethodGet, "/summary", s.handleSummaryPage, true},
		{http.MethodPost, "/summary", s.handleSummary, true},
		{http.MethodGet, "/pie_chart", s.handlePieChart, true},
		{http.MethodPost, "/pie_chart", s.handlePieChart, true},
		{http.MethodGet, "/health", s.handleHealth, false},
	}
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(cfg config.Config, users UserStore, expenses ExpenseStore, publisher ExportPublisher, sessions *auth.Sessions, logger *log.Logger) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    ":" + cfg.Port,
			Handler: mux,
		},
		users:       users,
		expenses:    expenses,
		publisher:   publisher,
		sessions:    sessions,
		rateLimiter: newRateLimiter(),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	}

	restore := auth.Middleware(sessions, users.GetUser, s.logger)
	for _, rt := range s.routes() {
		h := http.Handler(rt.handler)
		if rt.protected {
			h = auth.RequireUser(h)
		}
		mux.Handle(rt.method+" "+rt.pattern, restore(s.withSecurityHeaders(h)))
	}

	return s, nil
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := r.Context()

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit form submissions only
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Healthy!"))
}
