package auth

import (
	"context"
	"net/http"

	"terptracker/internal/core"
	"terptracker/internal/log"
)

// SessionUser is the per-request projection of a stored credential. It is
// rebuilt from the store on every request and never persisted.
type SessionUser struct {
	ID        string
	Email     string
	FirstName string
}

// UserLookup loads a credential by id. A (nil, nil) return means the user
// does not exist.
type UserLookup func(ctx context.Context, userID string) (*core.Credential, error)

type contextKey struct{}

// CurrentUser extracts the authenticated user from the request context.
func CurrentUser(ctx context.Context) (SessionUser, bool) {
	user, ok := ctx.Value(contextKey{}).(SessionUser)
	return user, ok
}

// WithUser returns a context carrying the given session user. Exposed for
// handler tests.
func WithUser(ctx context.Context, user SessionUser) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// Middleware restores the session user from the request cookie. An absent,
// expired or tampered cookie leaves the request anonymous; a valid cookie
// whose user has since vanished from the store does too. A failing lookup
// is logged and treated as anonymous, keeping public pages reachable
// during a store outage; the cookie stays so the session survives it.
func Middleware(sessions *Sessions, lookup UserLookup, logger *log.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(log.ComponentAuth)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := sessions.Verify(cookie.Value)
			if err != nil {
				sessions.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			cred, err := lookup(r.Context(), userID)
			if err != nil {
				logger.ErrorContext(r.Context(), "Session user lookup failed",
					log.FieldUserID, userID,
					log.FieldError, err)
				next.ServeHTTP(w, r)
				return
			}
			if cred == nil {
				sessions.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			user := SessionUser{
				ID:        cred.UserID,
				Email:     cred.Email,
				FirstName: cred.FirstName,
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireUser redirects anonymous requests to the login page.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
