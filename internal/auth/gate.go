package auth

import (
	"context"
	"fmt"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// Resolver maps role names to the union of permission actions they grant.
type Resolver interface {
	PermissionsForRoles(ctx context.Context, roles []string) ([]string, error)
}

// Gate is the request-level authorization entry point: it verifies the
// bearer token and resolves the claim's roles into permissions. Every
// privileged operation passes through here before acting.
type Gate struct {
	codec    *Codec
	resolver Resolver
}

// NewGate constructs a Gate.
func NewGate(codec *Codec, resolver Resolver) *Gate {
	return &Gate{codec: codec, resolver: resolver}
}

// Authorize turns an optional bearer token into an authorization context.
// An empty token yields ErrUnauthenticated; a bad one ErrInvalidToken.
// Roles named in the token that no longer exist simply contribute no
// permissions.
func (g *Gate) Authorize(ctx context.Context, token string) (*shared.AuthContext, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", shared.ErrUnauthenticated)
	}
	claims, err := g.codec.Verify(token)
	if err != nil {
		return nil, err
	}
	perms, err := g.resolver.PermissionsForRoles(ctx, claims.Roles)
	if err != nil {
		return nil, err
	}
	return shared.NewAuthContext(claims.Subject, claims.Roles, perms), nil
}
