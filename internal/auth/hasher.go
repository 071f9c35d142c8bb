package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hasher derives a storable digest from a plaintext secret using
// HMAC-SHA256 under a process-wide key. The transform is deterministic:
// verification recomputes the digest and compares. The key is injected
// from configuration, never compiled in.
type Hasher struct {
	key []byte
}

// NewHasher constructs a Hasher with the given key.
func NewHasher(key string) *Hasher {
	return &Hasher{key: []byte(key)}
}

// Hash returns the hex encoded HMAC-SHA256 digest of secret.
func (h *Hasher) Hash(secret string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether secret hashes to digest.
func (h *Hasher) Verify(secret, digest string) bool {
	computed := h.Hash(secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
