package opaqueengine

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/bytemare/ecc"

	"github.com/darkauth/server/internal/domain"
)

// GenerateServerKeyMaterial produces a fresh AKE keypair and OPRF seed
// suitable for Config. Run once at deployment bootstrap time; the resulting
// values must be persisted (e.g. in the KEK-encrypted config store) and
// reused across restarts, since rotating them invalidates every existing
// OpaqueRecord.
func GenerateServerKeyMaterial() (cfg Config, err error) {
	sk := ecc.P256Sha256.NewScalar()
	if err := sk.Random(); err != nil {
		return Config{}, domain.ErrCryptoFailed(err)
	}
	pk := ecc.P256Sha256.Base().Multiply(sk)

	seed := make([]byte, sha256.Size)
	if _, err := rand.Read(seed); err != nil {
		return Config{}, domain.ErrRandomFailed(err)
	}

	return Config{
		ServerIdentity:  pk.Encode(),
		ServerSecretKey: sk.Encode(),
		ServerPublicKey: pk.Encode(),
		OPRFSeed:        seed,
	}, nil
}
