package auth

import (
	"context"
	"errors"
	"slices"
)

type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth adapts a token check to an Authenticator.
//
// Example:
//
//	authenticator := auth.BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return b.validateFunc(token)
}

// TokenGrant maps one static token to an identity and the entities it may
// query. Empty Entities permits all entities.
type TokenGrant struct {
	Token    string   `mapstructure:"token"`
	Identity string   `mapstructure:"identity"`
	Entities []string `mapstructure:"entities"`
}

// staticAuthenticator authenticates against a fixed token list and
// authorizes per entity.
type staticAuthenticator struct {
	grants map[string]TokenGrant
	byID   map[string]TokenGrant
}

// StaticTokens creates an Authenticator over a fixed list of grants.
// It also implements EntityAuthorizer.
func StaticTokens(grants ...TokenGrant) Authenticator {
	s := &staticAuthenticator{
		grants: make(map[string]TokenGrant, len(grants)),
		byID:   make(map[string]TokenGrant, len(grants)),
	}
	for _, g := range grants {
		if g.Identity == "" {
			g.Identity = g.Token
		}
		s.grants[g.Token] = g
		s.byID[g.Identity] = g
	}
	return s
}

// Authenticate implements Authenticator for staticAuthenticator.
func (s *staticAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	g, ok := s.grants[token]
	if !ok {
		return "", ErrUnauthenticated
	}
	return g.Identity, nil
}

// AuthorizeEntity implements EntityAuthorizer for staticAuthenticator.
func (s *staticAuthenticator) AuthorizeEntity(ctx context.Context, entity string) error {
	g, ok := s.byID[IdentityFromContext(ctx)]
	if !ok {
		return errors.New("unknown identity")
	}
	if len(g.Entities) == 0 || slices.Contains(g.Entities, entity) {
		return nil
	}
	return errors.New("entity not granted")
}
