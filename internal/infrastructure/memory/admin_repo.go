package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/domain"
)

type AdminRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.AdminUser
	byEmail map[string]string
}

func NewAdminRepo() *AdminRepo {
	return &AdminRepo{byID: make(map[string]domain.AdminUser), byEmail: make(map[string]string)}
}

func (r *AdminRepo) GetByEmail(_ context.Context, email string) (domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.AdminUser{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *AdminRepo) GetByID(_ context.Context, id string) (domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.AdminUser{}, domain.ErrUserNotFound()
	}
	return a, nil
}

func (r *AdminRepo) Create(_ context.Context, a domain.AdminUser) (domain.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[a.Email]; exists {
		return domain.AdminUser{}, domain.ErrEmailAlreadyExists()
	}
	a.CreatedAt = time.Now()
	r.byID[a.ID] = a
	r.byEmail[a.Email] = a.ID
	return a, nil
}

func (r *AdminRepo) List(_ context.Context) ([]domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AdminUser, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out, nil
}

func (r *AdminRepo) CountByRole(_ context.Context, role domain.AdminRole) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.byID {
		if a.Role == string(role) {
			n++
		}
	}
	return n, nil
}

func (r *AdminRepo) SetRole(_ context.Context, id string, role domain.AdminRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	a.Role = string(role)
	r.byID[id] = a
	r.byEmail[a.Email] = id
	return nil
}
