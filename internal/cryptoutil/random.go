// Package cryptoutil holds small, dependency-light cryptographic helpers
// shared across the OPAQUE engine, key schedule, and session stores.
package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/darkauth/server/internal/domain"
)

// NewOpaqueToken returns a URL-safe, high-entropy random token suitable for
// session ids, refresh tokens, and authorization codes.
func NewOpaqueToken(byteLen int) (string, error) {
	if byteLen <= 0 {
		byteLen = 32
	}
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the SHA-256 digest of an opaque bearer token, the form
// persisted for refresh tokens and authorization codes so the plaintext
// value is never stored at rest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
