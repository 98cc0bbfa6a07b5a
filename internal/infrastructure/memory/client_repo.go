package memory

import (
	"context"
	"sync"

	"github.com/darkauth/server/internal/domain"
)

// ClientRepo is an in-memory OIDC client registration store, used for local
// development and the oidc package's unit tests.
type ClientRepo struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
}

func NewClientRepo() *ClientRepo {
	return &ClientRepo{clients: make(map[string]domain.Client)}
}

func (r *ClientRepo) GetByID(_ context.Context, clientID string) (domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound()
	}
	return c, nil
}

func (r *ClientRepo) Create(_ context.Context, c domain.Client) (domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[c.ClientID]; exists {
		return domain.Client{}, domain.New(domain.KindConflict, "client_already_exists", "client already registered")
	}
	r.clients[c.ClientID] = c
	return c, nil
}
