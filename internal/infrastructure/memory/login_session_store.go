package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// LoginSessionStore holds OPAQUE AKE state between login-start and
// login-finish for either cohort (satisfies auth.LoginSessionStore and
// adminauth.LoginSessionStore structurally).
type LoginSessionStore struct {
	mu       sync.Mutex
	sessions map[string]loginSessionEntry
}

type loginSessionEntry struct {
	sess      domain.OpaqueLoginSession
	expiresAt time.Time
}

func NewLoginSessionStore() *LoginSessionStore {
	return &LoginSessionStore{sessions: make(map[string]loginSessionEntry)}
}

func (s *LoginSessionStore) Create(_ context.Context, sess domain.OpaqueLoginSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = loginSessionEntry{sess: sess, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *LoginSessionStore) Consume(_ context.Context, id string) (domain.OpaqueLoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return domain.OpaqueLoginSession{}, domain.ErrSessionNotFound()
	}
	delete(s.sessions, id)
	if time.Now().After(e.expiresAt) {
		return domain.OpaqueLoginSession{}, domain.ErrSessionInvalid()
	}
	return e.sess, nil
}
