package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	order []string
	users map[string]Identity
}

// NewMemoryRepository builds an in-memory roster for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]Identity)}
}

func (r *memoryRepository) Append(_ context.Context, identity Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[identity.Username]; exists {
		return ErrUsernameTaken
	}
	r.users[identity.Username] = identity
	r.order = append(r.order, identity.Username)
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.users[username]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return identity, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Identity, 0, len(r.order))
	for _, username := range r.order {
		out = append(out, r.users[username])
	}
	return out, nil
}
