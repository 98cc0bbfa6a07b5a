// Package zk implements zero-knowledge delivery of the wrapped Data Root
// Key to the client: a compact JWE (ECDH-ES + A256GCM) placed in the OIDC
// redirect fragment, never in a query parameter or server log.
package zk

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/darkauth/server/internal/domain"
)

// Payload is the plaintext JSON structure encrypted into the JWE. The
// server constructs it from a WrappedRootKey row; it never has the key
// material to decrypt this DRK ciphertext itself.
type Payload struct {
	WrappedDRK string `json:"wrapped_drk"` // base64url ciphertext
	Nonce      string `json:"nonce"`       // base64url AES-GCM nonce
	KDFVersion int    `json:"kdf_version"`
}

// Encrypt produces a compact JWE of payload under the client's ephemeral
// ECDH public key (recipientPub, P-256) using ECDH-ES+A256GCM, along with
// zk_drk_hash = base64url(SHA256(compact JWE)) for binding into the
// authorization code.
func Encrypt(payload Payload, recipientPub *ecdsa.PublicKey) (compactJWE string, zkDRKHash string, err error) {
	recipientKey := jose.JSONWebKey{Key: recipientPub}

	encrypter, jerr := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.ECDH_ES, Key: recipientKey},
		(&jose.EncrypterOptions{}).WithContentType("application/json"),
	)
	if jerr != nil {
		return "", "", domain.ErrCryptoFailed(jerr)
	}

	plaintext, merr := marshalPayload(payload)
	if merr != nil {
		return "", "", domain.ErrCryptoFailed(merr)
	}

	obj, eerr := encrypter.Encrypt(plaintext)
	if eerr != nil {
		return "", "", domain.ErrCryptoFailed(eerr)
	}

	compact, cerr := obj.CompactSerialize()
	if cerr != nil {
		return "", "", domain.ErrCryptoFailed(cerr)
	}

	sum := sha256.Sum256([]byte(compact))
	return compact, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// VerifyHash recomputes zk_drk_hash over a compact JWE and compares it
// against an expected hash, such as the zk_drk_hash returned by the token
// endpoint. No server code path calls it: the JWE is not kept server-side.
func VerifyHash(compactJWE, expectedHash string) bool {
	sum := sha256.Sum256([]byte(compactJWE))
	return base64.RawURLEncoding.EncodeToString(sum[:]) == expectedHash
}

// NewEphemeralKey generates a P-256 keypair for a client that wants to
// receive a ZK payload; exported for test fixtures standing in for the
// client side of the protocol.
func NewEphemeralKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), randReader())
}
