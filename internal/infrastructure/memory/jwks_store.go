package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// JWKSStore backs internal/jwks.Store for local development and tests.
type JWKSStore struct {
	mu      sync.Mutex
	entries map[string]domain.JWKSEntry
}

func NewJWKSStore() *JWKSStore {
	return &JWKSStore{entries: make(map[string]domain.JWKSEntry)}
}

func (s *JWKSStore) Insert(_ context.Context, entry domain.JWKSEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.KID] = entry
	return nil
}

// ListActive returns every entry the rotation manager still needs in
// memory — active and retired-but-unpurged alike, matching the semantics
// internal/jwks.Manager.Bootstrap expects (it sorts active vs. retired
// itself from the Active field).
func (s *JWKSStore) ListActive(_ context.Context) ([]domain.JWKSEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JWKSEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *JWKSStore) SetActive(_ context.Context, kid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		e.Active = k == kid
		s.entries[k] = e
	}
	return nil
}

func (s *JWKSStore) Retire(_ context.Context, kid string, rotatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[kid]
	if !ok {
		return domain.New(domain.KindNotFound, "jwks_entry_not_found", "jwks entry not found")
	}
	e.Active = false
	e.RotatedAt = &rotatedAt
	s.entries[kid] = e
	return nil
}
