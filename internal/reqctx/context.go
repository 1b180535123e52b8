// Package reqctx provides request-scoped context utilities for HTTP handlers.
// It carries a request ID from the X-Request-ID header, or a generated one,
// so log lines of one request can be correlated.
package reqctx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the HTTP header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the unexported context key for request ID.
type requestIDKey struct{}

// WithRequestID returns a new context with the request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext retrieves the request ID if present.
// Returns ("", false) if no request ID is set.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ExtractRequestID returns the request ID sent by the client, or a new
// random UUID if the header is absent.
func ExtractRequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

// Middleware stores the request ID in the request context and echoes it
// in the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ExtractRequestID(r)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
