// Package jwks owns the OIDC signing-key rotation set and publishes the
// public half at the JWKS endpoint. Signing uses EdDSA (Ed25519) by default,
// grounded on the same go-jose library used for ZK delivery.
package jwks

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/darkauth/server/internal/domain"
)

// Store is the persistence port for JWKS entries, implemented by the
// Postgres and in-memory backends.
type Store interface {
	Insert(ctx context.Context, entry domain.JWKSEntry) error
	ListActive(ctx context.Context) ([]domain.JWKSEntry, error)
	SetActive(ctx context.Context, kid string) error
	Retire(ctx context.Context, kid string, rotatedAt time.Time) error
}

// Manager holds the decoded signing keys in memory. Bootstrap loads them
// from Store once; RotateSweep mints a new key on a timer until its context
// is cancelled. Keys are not reloaded from Store after Bootstrap.
type Manager struct {
	store Store

	mu      sync.RWMutex
	active  *signingKey
	retired map[string]*signingKey // kid -> key; retired keys are never removed
}

type signingKey struct {
	kid     string
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

func New(store Store) *Manager {
	return &Manager{store: store, retired: map[string]*signingKey{}}
}

// Bootstrap loads existing keys from the store, minting a first signing key
// if none exist yet.
func (m *Manager) Bootstrap(ctx context.Context) error {
	entries, err := m.store.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return m.Rotate(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		sk, perr := decodeEntry(e)
		if perr != nil {
			continue
		}
		if e.Active {
			m.active = sk
		} else {
			m.retired[e.KID] = sk
		}
	}
	return nil
}

// Rotate mints a new Ed25519 signing key, marks it active, and demotes the
// previous active key to retired (kept only for verifying still-live
// tokens, never for signing new ones).
func (m *Manager) Rotate(ctx context.Context) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.ErrRandomFailed(err)
	}

	kid := uuid.NewString()

	privJWK, merr := json.Marshal(jose.JSONWebKey{Key: priv, KeyID: kid, Algorithm: "EdDSA", Use: "sig"})
	if merr != nil {
		return domain.ErrCryptoFailed(merr)
	}
	pubJWK, merr := json.Marshal(jose.JSONWebKey{Key: pub, KeyID: kid, Algorithm: "EdDSA", Use: "sig"})
	if merr != nil {
		return domain.ErrCryptoFailed(merr)
	}

	entry := domain.JWKSEntry{
		KID:        kid,
		Alg:        "EdDSA",
		PrivateJWK: privJWK,
		PublicJWK:  pubJWK,
		Active:     true,
		CreatedAt:  time.Now(),
	}
	if err := m.store.Insert(ctx, entry); err != nil {
		return err
	}
	if err := m.store.SetActive(ctx, kid); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.retired[m.active.kid] = m.active
	}
	m.active = &signingKey{kid: kid, private: priv, public: pub}
	return nil
}

// RotateSweep runs Rotate on maxAge cadence until ctx is cancelled, grounded
// on the teacher's graceful-shutdown goroutine pattern (api/cmd/main.go).
func (m *Manager) RotateSweep(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = m.Rotate(ctx)
		}
	}
}

// Signer returns a jose.Signer bound to the currently active key.
func (m *Manager) Signer() (jose.Signer, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, "", domain.ErrInternal(nil)
	}

	key := jose.SigningKey{Algorithm: jose.EdDSA, Key: m.active.private}
	signer, err := jose.NewSigner(key, (&jose.SignerOptions{}).WithHeader("kid", m.active.kid))
	if err != nil {
		return nil, "", domain.ErrCryptoFailed(err)
	}
	return signer, m.active.kid, nil
}

// PublicSet returns the public half of every key the Manager holds (active +
// all retired keys; none are pruned) as a JSON Web Key Set for the
// discovery endpoint.
func (m *Manager) PublicSet() jose.JSONWebKeySet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := jose.JSONWebKeySet{}
	if m.active != nil {
		set.Keys = append(set.Keys, jose.JSONWebKey{Key: m.active.public, KeyID: m.active.kid, Algorithm: "EdDSA", Use: "sig"})
	}
	for kid, k := range m.retired {
		set.Keys = append(set.Keys, jose.JSONWebKey{Key: k.public, KeyID: kid, Algorithm: "EdDSA", Use: "sig"})
	}
	return set
}

func decodeEntry(e domain.JWKSEntry) (*signingKey, error) {
	sk := &signingKey{kid: e.KID}

	if len(e.PublicJWK) > 0 {
		var pub jose.JSONWebKey
		if err := json.Unmarshal(e.PublicJWK, &pub); err != nil {
			return nil, domain.ErrCryptoFailed(err)
		}
		if k, ok := pub.Key.(ed25519.PublicKey); ok {
			sk.public = k
		}
	}

	if len(e.PrivateJWK) > 0 {
		var priv jose.JSONWebKey
		if err := json.Unmarshal(e.PrivateJWK, &priv); err != nil {
			return nil, domain.ErrCryptoFailed(err)
		}
		if k, ok := priv.Key.(ed25519.PrivateKey); ok {
			sk.private = k
		}
	}

	return sk, nil
}
