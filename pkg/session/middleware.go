package session

import (
	"context"
	"errors"
	"net/http"
)

type userIDKey struct{}

// WithUserID stores a verified user id in the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the user id stored by Middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// Middleware verifies the session cookie and stores the user id in the request
// context. Requests without a valid session pass through anonymously; a stale
// or tampered cookie is cleared on the response.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.UserID(r)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				http.SetCookie(w, m.ClearCookie())
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}
