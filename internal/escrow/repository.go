package escrow

import (
	"context"
	"errors"
)

var (
	// ErrCommitmentExists indicates the key has already been committed.
	ErrCommitmentExists = errors.New("commitment already exists")
	// ErrCommitmentNotFound indicates no commitment is stored under the key.
	ErrCommitmentNotFound = errors.New("commitment not found")
)

// Repository persists commitments keyed by their 32-byte hash.
type Repository interface {
	// Create stores a new commitment or returns ErrCommitmentExists.
	Create(ctx context.Context, commitment Commitment) error
	Get(ctx context.Context, key Key) (Commitment, error)
	// MarkRevealed flips the commitment to revealed. It fails with
	// ErrCommitmentNotFound if the key is absent or already revealed, making
	// the transition one-way at the storage layer too.
	MarkRevealed(ctx context.Context, key Key) error
}
