package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/shared"
)

type stubResolver struct {
	grants map[string][]string
	err    error
}

func (s *stubResolver) PermissionsForRoles(ctx context.Context, roles []string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	seen := make(map[string]struct{})
	var perms []string
	for _, role := range roles {
		for _, p := range s.grants[role] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func TestAuthorizeMissingToken(t *testing.T) {
	gate := auth.NewGate(auth.NewCodec("s", time.Minute), &stubResolver{})
	_, err := gate.Authorize(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestAuthorizeBadToken(t *testing.T) {
	gate := auth.NewGate(auth.NewCodec("s", time.Minute), &stubResolver{})
	_, err := gate.Authorize(context.Background(), "garbled")
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestAuthorizeResolvesPermissions(t *testing.T) {
	codec := auth.NewCodec("s", time.Minute)
	resolver := &stubResolver{grants: map[string][]string{
		"Editor": {"Update", "Read"},
		"Viewer": {"Read"},
	}}
	gate := auth.NewGate(codec, resolver)

	token, err := codec.Issue("7", []string{"Editor", "Viewer"})
	require.NoError(t, err)

	ac, err := gate.Authorize(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "7", ac.Subject)
	require.True(t, ac.HasRole("Editor"))
	require.True(t, ac.HasRole("Viewer"))
	require.False(t, ac.HasRole("Admin"))
	require.True(t, ac.HasPermission("Update"))
	require.True(t, ac.HasPermission("Read"))
	require.False(t, ac.HasPermission("Delete"))
}

func TestAuthorizeUnknownRoleDegrades(t *testing.T) {
	codec := auth.NewCodec("s", time.Minute)
	gate := auth.NewGate(codec, &stubResolver{grants: map[string][]string{}})

	// A role deleted after issue contributes nothing rather than failing.
	token, err := codec.Issue("7", []string{"Ghost"})
	require.NoError(t, err)

	ac, err := gate.Authorize(context.Background(), token)
	require.NoError(t, err)
	require.Empty(t, ac.Permissions)
}

func TestAuthorizeResolverFault(t *testing.T) {
	codec := auth.NewCodec("s", time.Minute)
	gate := auth.NewGate(codec, &stubResolver{err: shared.ErrStorage})

	token, err := codec.Issue("7", []string{"Viewer"})
	require.NoError(t, err)

	_, err = gate.Authorize(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrStorage)
}
