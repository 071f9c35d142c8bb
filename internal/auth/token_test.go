package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/shared"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := auth.NewCodec("test-secret", 15*time.Minute)
	issuedAt := time.Now()

	token, err := codec.Issue("42", []string{"Editor", "Viewer"})
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, []string{"Editor", "Viewer"}, claims.Roles)

	require.NotNil(t, claims.ExpiresAt)
	ttl := claims.ExpiresAt.Sub(issuedAt)
	require.Greater(t, ttl, 14*time.Minute)
	require.LessOrEqual(t, ttl, 15*time.Minute+time.Second)
}

func TestVerifyExpired(t *testing.T) {
	codec := auth.NewCodec("test-secret", 15*time.Minute)
	past := time.Now().Add(-time.Hour)
	token, err := codec.WithClock(func() time.Time { return past }).Issue("42", []string{"Viewer"})
	require.NoError(t, err)

	// Signature is valid; only the expiry has passed.
	_, err = codec.Verify(token)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := auth.NewCodec("secret-a", time.Minute).Issue("42", []string{"Viewer"})
	require.NoError(t, err)

	_, err = auth.NewCodec("secret-b", time.Minute).Verify(token)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	codec := auth.NewCodec("test-secret", time.Minute)
	for _, token := range []string{"", "not-a-token", "aaaa.bbbb.cccc"} {
		_, err := codec.Verify(token)
		if !errors.Is(err, shared.ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}
