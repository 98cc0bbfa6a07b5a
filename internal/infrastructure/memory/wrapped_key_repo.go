package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/domain"
)

type WrappedRootKeyRepo struct {
	mu   sync.RWMutex
	keys map[string]domain.WrappedRootKey
}

func NewWrappedRootKeyRepo() *WrappedRootKeyRepo {
	return &WrappedRootKeyRepo{keys: make(map[string]domain.WrappedRootKey)}
}

func (r *WrappedRootKeyRepo) Get(_ context.Context, userID string) (domain.WrappedRootKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[userID]
	if !ok {
		return domain.WrappedRootKey{}, domain.ErrUserNotFound()
	}
	return k, nil
}

func (r *WrappedRootKeyRepo) Upsert(_ context.Context, wrk domain.WrappedRootKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if wrk.CreatedAt.IsZero() {
		wrk.CreatedAt = now
	}
	wrk.UpdatedAt = now
	r.keys[wrk.UserID] = wrk
	return nil
}
