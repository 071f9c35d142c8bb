package auth_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func TestHashDeterministic(t *testing.T) {
	h := auth.NewHasher("test-key")
	first := h.Hash("Admin")
	second := h.Hash("Admin")
	require.Equal(t, first, second)

	raw, err := hex.DecodeString(first)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestHashKeyed(t *testing.T) {
	a := auth.NewHasher("key-a")
	b := auth.NewHasher("key-b")
	require.NotEqual(t, a.Hash("secret"), b.Hash("secret"))
}

func TestVerify(t *testing.T) {
	h := auth.NewHasher("test-key")
	digest := h.Hash("secret")
	require.True(t, h.Verify("secret", digest))
	require.False(t, h.Verify("other", digest))
	require.False(t, h.Verify("secret", "deadbeef"))
}
