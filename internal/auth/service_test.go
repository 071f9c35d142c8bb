package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/shared"
)

type stubCredsRepo struct {
	creds *auth.Credentials
}

func (s *stubCredsRepo) FindCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	if s.creds == nil {
		return nil, shared.ErrNotFound
	}
	return s.creds, nil
}

func TestLoginSuccess(t *testing.T) {
	hasher := auth.NewHasher("cred-key")
	codec := auth.NewCodec("tok-secret", 15*time.Minute)
	repo := &stubCredsRepo{creds: &auth.Credentials{
		ID:     1,
		Digest: hasher.Hash("Admin"),
		Roles:  []string{"Admin"},
	}}
	svc := auth.NewService(repo, hasher, codec)

	data, err := svc.Login(context.Background(), "admin@test.com", "Admin")
	require.NoError(t, err)
	require.Equal(t, "1", data.SubjectID)

	claims, err := codec.Verify(data.Token)
	require.NoError(t, err)
	require.Equal(t, "1", claims.Subject)
	require.Equal(t, []string{"Admin"}, claims.Roles)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := auth.NewService(&stubCredsRepo{}, auth.NewHasher("k"), auth.NewCodec("s", time.Minute))
	_, err := svc.Login(context.Background(), "ghost@test.com", "pw")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLoginWrongPassword(t *testing.T) {
	hasher := auth.NewHasher("cred-key")
	repo := &stubCredsRepo{creds: &auth.Credentials{ID: 1, Digest: hasher.Hash("right"), Roles: []string{"Viewer"}}}
	svc := auth.NewService(repo, hasher, auth.NewCodec("s", time.Minute))

	_, err := svc.Login(context.Background(), "user@test.com", "wrong")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}
