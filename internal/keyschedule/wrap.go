package keyschedule

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/darkauth/server/internal/domain"
)

// WrapDRK seals a 32-byte Data Root Key under KW with AES-256-GCM. This
// function only runs client-side in the real protocol; it is exported so
// client-side tooling can reproduce the exact wire format the server stores
// opaquely. The server process does not call it.
func WrapDRK(kw, drk []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(kw)
	if err != nil {
		return nil, nil, domain.ErrCryptoFailed(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, domain.ErrCryptoFailed(err)
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, domain.ErrRandomFailed(err)
	}
	ciphertext = gcm.Seal(nil, nonce, drk, nil)
	return ciphertext, nonce, nil
}

// UnwrapDRK is the inverse of WrapDRK, for client-side tooling only — the
// server process never calls it.
func UnwrapDRK(kw, ciphertext, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(kw)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	drk, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	return drk, nil
}
