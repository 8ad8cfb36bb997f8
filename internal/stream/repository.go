package stream

import (
	"context"
	"errors"
)

// ErrNotFound indicates the stream id is unknown.
var ErrNotFound = errors.New("stream not found")

// Repository persists stream records. Identifiers are allocated by Create,
// start at 1, strictly increase and are never reused.
type Repository interface {
	Create(ctx context.Context, stream Stream) (int64, error)
	Get(ctx context.Context, id int64) (Stream, error)
	// UpdateWithdrawn records the new cumulative withdrawn amount for the stream.
	UpdateWithdrawn(ctx context.Context, id int64, withdrawn int64) error
}
