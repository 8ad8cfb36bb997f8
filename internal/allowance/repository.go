package allowance

import (
	"context"
	"errors"
)

// ErrNoGrant indicates no grant exists for the owner/spender pair.
var ErrNoGrant = errors.New("no grant for owner/spender pair")

// Repository persists allowance grants keyed by (owner, spender).
type Repository interface {
	// Put creates or fully replaces the grant for (grant.Owner, grant.Spender).
	Put(ctx context.Context, grant Grant) error
	// Get returns the grant for the pair or ErrNoGrant.
	Get(ctx context.Context, owner, spender string) (Grant, error)
}
