package allowance

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	grants map[string]Grant
}

// NewMemoryRepository constructs an in-memory grant store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{grants: make(map[string]Grant)}
}

func pairKey(owner, spender string) string {
	return owner + "\x00" + spender
}

func (r *memoryRepository) Put(_ context.Context, grant Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[pairKey(grant.Owner, grant.Spender)] = grant
	return nil
}

func (r *memoryRepository) Get(_ context.Context, owner, spender string) (Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grant, ok := r.grants[pairKey(owner, spender)]
	if !ok {
		return Grant{}, ErrNoGrant
	}
	return grant, nil
}
