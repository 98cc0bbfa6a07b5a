package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/darkauth/server/internal/domain"
)

// SecretBox seals small server-held secrets (TOTP seeds) at rest under a
// server KEK, the same AES-256-GCM construction internal/keyschedule uses
// for client-side DRK wrapping, but keyed by a KEK the server itself holds
// rather than a key derived from a client's OPAQUE export_key.
type SecretBox struct {
	kek []byte
}

func NewSecretBox(kek []byte) (*SecretBox, error) {
	if len(kek) != 32 {
		return nil, domain.ErrCryptoFailed(nil)
	}
	return &SecretBox{kek: kek}, nil
}

// Seal returns nonce||ciphertext.
func (b *SecretBox) Seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(b.kek)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, domain.ErrRandomFailed(err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (b *SecretBox) Open(sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(b.kek)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, domain.ErrCryptoFailed(nil)
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	return plaintext, nil
}
