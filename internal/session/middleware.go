package session

import (
	"context"
	"net/http"
)

type contextKey string

// SessionContextKey is the context key for the request's session ID.
const SessionContextKey contextKey = "session"

// DefaultSessionID is used when the client sends no session header.
const DefaultSessionID = "default"

// Middleware reads the X-Session-ID header and adds the session ID to
// the request context. Absent header falls back to the default session.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get("X-Session-ID")
		if sessionID == "" {
			sessionID = DefaultSessionID
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext extracts the session ID from the request context.
func FromContext(ctx context.Context) string {
	id, ok := ctx.Value(SessionContextKey).(string)
	if !ok {
		return DefaultSessionID
	}
	return id
}
