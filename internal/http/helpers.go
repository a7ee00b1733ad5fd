package http

import (
	"net/http"

	"terptracker/internal/auth"
	"terptracker/internal/log"
)

// render executes the named template with the handler's data plus the
// common page context (current user, queued flash messages).
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if user, ok := auth.CurrentUser(r.Context()); ok {
		data["User"] = user
	}
	data["Flashes"] = popFlashes(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			log.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
