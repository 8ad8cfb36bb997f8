package escrow

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu          sync.RWMutex
	commitments map[Key]Commitment
}

// NewMemoryRepository constructs an in-memory commitment store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{commitments: make(map[Key]Commitment)}
}

func (r *memoryRepository) Create(_ context.Context, commitment Commitment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commitments[commitment.Key]; exists {
		return ErrCommitmentExists
	}
	r.commitments[commitment.Key] = commitment
	return nil
}

func (r *memoryRepository) Get(_ context.Context, key Key) (Commitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	commitment, ok := r.commitments[key]
	if !ok {
		return Commitment{}, ErrCommitmentNotFound
	}
	return commitment, nil
}

func (r *memoryRepository) MarkRevealed(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	commitment, ok := r.commitments[key]
	if !ok || commitment.Revealed {
		return ErrCommitmentNotFound
	}
	commitment.Revealed = true
	r.commitments[key] = commitment
	return nil
}
