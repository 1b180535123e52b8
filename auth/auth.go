// Package auth provides bearer-token authentication for the HTTP query API.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidAuthHeader is returned when the authorization header is malformed.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")

	// ErrTokenIsEmpty is returned when the bearer token is missing.
	ErrTokenIsEmpty = errors.New("authorization token is empty")

	// ErrUnauthenticated is returned when authentication fails.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an identity may not read an entity.
	ErrForbidden = errors.New("forbidden")
)

// Authenticator maps the bearer token of an API request to a caller identity.
// The server calls it from concurrent request goroutines.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// EntityAuthorizer limits the entities an authenticated caller may query.
// An Authenticator may implement it; the server checks it after the token has
// been accepted and before the entity's query string is translated.
type EntityAuthorizer interface {
	AuthorizeEntity(ctx context.Context, entity string) error
}

type noAuthenticator struct{}

// NoAuth accepts every token as the "anonymous" caller.
func NoAuth() Authenticator {
	return &noAuthenticator{}
}

func (n *noAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return "anonymous", nil
}

type contextKey int

const (
	identityKey contextKey = iota
)

// IdentityFromContext returns the caller stored by WithIdentity, or "".
func IdentityFromContext(ctx context.Context) string {
	val, ok := ctx.Value(identityKey).(string)
	if !ok {
		return ""
	}
	return val
}

// WithIdentity stores the caller for the rest of the request.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

const bearerPrefix = "Bearer "

// TokenFromAuthorizationHeader extracts the token of a "Bearer <token>" header.
func TokenFromAuthorizationHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrTokenIsEmpty
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrTokenIsEmpty
	}
	return token, nil
}

// ValidateToken authenticates token and returns ctx carrying the caller.
// Any Authenticator failure surfaces as ErrUnauthenticated.
func ValidateToken(ctx context.Context, token string, authenticator Authenticator) (context.Context, error) {
	if token == "" {
		return ctx, ErrTokenIsEmpty
	}

	identity, err := authenticator.Authenticate(ctx, token)
	if err != nil {
		return ctx, ErrUnauthenticated
	}

	return WithIdentity(ctx, identity), nil
}

// AuthorizeEntity checks entity access when authenticator implements
// EntityAuthorizer. Other authenticators permit every entity.
func AuthorizeEntity(ctx context.Context, authenticator Authenticator, entity string) error {
	az, ok := authenticator.(EntityAuthorizer)
	if !ok {
		return nil
	}
	if err := az.AuthorizeEntity(ctx, entity); err != nil {
		return errors.Join(ErrForbidden, err)
	}
	return nil
}
