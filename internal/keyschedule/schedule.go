// Package keyschedule implements the HKDF-SHA256 chain that turns an OPAQUE
// export_key into the key-wrapping key (KW) the client uses to wrap its
// Data Root Key. The server only ever transports the ciphertext this
// produces; it never sees export_key, MK, or KW.
package keyschedule

import (
	"crypto/sha256"
	"io"

	"github.com/darkauth/server/internal/domain"
	"golang.org/x/crypto/hkdf"
)

const (
	infoMasterKey = "darkauth-v1-master-key"
	infoWrapKey   = "darkauth-v1-wrap-key"
)

// DeriveMasterKey computes MK = HKDF-Extract-Expand(export_key, info=infoMasterKey).
func DeriveMasterKey(exportKey []byte) ([]byte, error) {
	return expand(exportKey, infoMasterKey, 32)
}

// DeriveWrapKey computes KW = HKDF-Expand(MK, info=infoWrapKey), the AES-256
// key used to wrap/unwrap the Data Root Key.
func DeriveWrapKey(masterKey []byte) ([]byte, error) {
	return expand(masterKey, infoWrapKey, 32)
}

// DeriveKW is the full export_key -> MK -> KW chain in one call, for
// client-side tooling that needs to reproduce the schedule end to end; the
// server process does not call it.
func DeriveKW(exportKey []byte) ([]byte, error) {
	mk, err := DeriveMasterKey(exportKey)
	if err != nil {
		return nil, err
	}
	return DeriveWrapKey(mk)
}

func expand(secret []byte, info string, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, domain.ErrCryptoFailed(err)
	}
	return out, nil
}
