package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// AuthCodeStore is the in-process fallback for AuthCodeRepo. Consume
// deletes under the same mutex as the lookup so a code can never be
// redeemed twice even under concurrent calls, mirroring the guarantee
// redis.AuthCodeStore gets from its GET+DEL Lua script.
type AuthCodeStore struct {
	mu    sync.Mutex
	codes map[string]authCodeEntry
}

type authCodeEntry struct {
	code      domain.AuthCode
	expiresAt time.Time
}

func NewAuthCodeStore() *AuthCodeStore {
	return &AuthCodeStore{codes: make(map[string]authCodeEntry)}
}

func (s *AuthCodeStore) Save(_ context.Context, code domain.AuthCode, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = authCodeEntry{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *AuthCodeStore) Consume(_ context.Context, code string) (domain.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.codes[code]
	if !ok {
		return domain.AuthCode{}, domain.ErrAuthCodeNotFound()
	}
	delete(s.codes, code)
	if time.Now().After(e.expiresAt) {
		return domain.AuthCode{}, domain.ErrAuthCodeNotFound()
	}
	return e.code, nil
}
