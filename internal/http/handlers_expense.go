package http

import (
	"fmt"
	"net/http"
	"time"

	"terptracker/internal/auth"
	"terptracker/internal/core"
	"terptracker/internal/log"
)

func (s *Server) handleHomePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home.html", nil)
}

func (s *Server) handleSubmitExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	if err := r.ParseForm(); err != nil {
		addFlash(w, r, "There was an error parsing your information", "error")
		s.render(w, r, "home.html", nil)
		return
	}

	input := core.ExpenseInput{
		Type:     r.Form.Get("expense_type"),
		Category: r.Form.Get("expense_category"),
		Amount:   r.Form.Get("expense_amount"),
		Date:     r.Form.Get("expense_date"),
		Note:     r.Form.Get("expense_note"),
	}

	rec, err := input.Record(user.Email, time.Now())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Expense form rejected",
			log.FieldUserEmail, user.Email,
			log.FieldError, err)
		addFlash(w, r, "There was an error parsing your information", "error")
		s.render(w, r, "home.html", nil)
		return
	}

	if err := s.expenses.PutExpense(r.Context(), rec); err != nil {
		s.logger.ErrorContext(r.Context(), "Expense insert failed",
			log.FieldUserEmail, user.Email,
			log.FieldError, err)
		addFlash(w, r, "There was an error parsing your information", "error")
		s.render(w, r, "home.html", nil)
		return
	}

	// Export is best effort; a queue outage must not lose the submission.
	if s.publisher != nil {
		if err := s.publisher.PublishExpenseExport(r.Context(), rec.UserEmail, rec.Timestamp); err != nil {
			s.logger.ErrorContext(r.Context(), "Export publish failed",
				log.FieldUserEmail, rec.UserEmail,
				log.FieldTimestamp, rec.Timestamp,
				log.FieldError, err)
		}
	}

	addFlash(w, r, fmt.Sprintf("Successfully added your %s expense", rec.Category), "success")
	s.render(w, r, "home.html", nil)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "task_status.html", map[string]any{
		"TaskID": r.PathValue("task_id"),
	})
}
