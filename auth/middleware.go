package auth

import (
	"net/http"
)

// Middleware creates an HTTP middleware for authentication.
// Validates bearer tokens and propagates identity via context.
// If no authenticator is provided, requests pass through without auth.
func Middleware(authenticator Authenticator, next http.Handler) http.Handler {
	if authenticator == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Preflight requests carry no credentials
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := TokenFromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			unauthorized(w, err)
			return
		}

		ctx, err := ValidateToken(r.Context(), token, authenticator)
		if err != nil {
			unauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="apiquery"`)
	http.Error(w, err.Error(), http.StatusUnauthorized)
}
