package memory

import (
	"context"
	"sync"

	"github.com/darkauth/server/internal/domain"
)

// EncPublicJWKStore is the in-process implementation of
// oidc.EncPublicJWKRepo, backing PUT/GET /crypto/enc-public-jwk.
type EncPublicJWKStore struct {
	mu   sync.Mutex
	jwks map[string]string
}

func NewEncPublicJWKStore() *EncPublicJWKStore {
	return &EncPublicJWKStore{jwks: make(map[string]string)}
}

func (s *EncPublicJWKStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jwk, ok := s.jwks[userID]
	if !ok {
		return "", domain.ErrUserNotFound()
	}
	return jwk, nil
}

func (s *EncPublicJWKStore) Upsert(_ context.Context, userID, jwk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwks[userID] = jwk
	return nil
}
