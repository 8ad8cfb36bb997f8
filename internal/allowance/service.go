package allowance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kivu-pay/kivu_escrow/internal/clock"
	"github.com/kivu-pay/kivu_escrow/internal/ledger"
	"github.com/kivu-pay/kivu_escrow/internal/notification"
)

var (
	// ErrInvalidAmount rejects negative amounts, and zero where a positive amount is required.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrGrantExpired indicates the grant's expiry is at or before the current time.
	ErrGrantExpired = errors.New("grant expired")
	// ErrGrantExceeded indicates the spend amount exceeds the remaining allowance.
	ErrGrantExceeded = errors.New("amount exceeds remaining allowance")
)

// Service implements the allowance authority: owners delegate capped,
// time-limited spending rights against a per-owner funding pool.
//
// Mutating operations are serialized so each call observes the state left by
// the previous one and either applies fully or not at all.
type Service struct {
	mu       sync.Mutex
	repo     Repository
	ledger   ledger.Ledger
	clock    clock.Clock
	notifier notification.Notifier
}

// NewService constructs an allowance service.
func NewService(repo Repository, ledgerBackend ledger.Ledger, clk clock.Clock, notifier notification.Notifier) *Service {
	return &Service{repo: repo, ledger: ledgerBackend, clock: clk, notifier: notifier}
}

// SetAllowanceInput captures an owner's delegation request.
type SetAllowanceInput struct {
	Caller  string
	Spender string
	Amount  int64
	Expiry  int64
}

// SetAllowance overwrites the grant for (caller, spender). It replaces, never
// adds to, any prior remaining balance. Setting an already-expired grant is
// legal and simply inert.
func (s *Service) SetAllowance(ctx context.Context, input SetAllowanceInput) error {
	if input.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
	}
	if input.Caller == "" || input.Spender == "" {
		return fmt.Errorf("owner and spender are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.Put(ctx, Grant{
		Owner:     input.Caller,
		Spender:   input.Spender,
		Remaining: input.Amount,
		Expiry:    input.Expiry,
	})
}

// Allowance returns the remaining allowance for the pair; a pair with no grant
// reads as zero rather than an error.
func (s *Service) Allowance(ctx context.Context, owner, spender string) (int64, error) {
	grant, err := s.repo.Get(ctx, owner, spender)
	if err != nil {
		if errors.Is(err, ErrNoGrant) {
			return 0, nil
		}
		return 0, err
	}
	return grant.Remaining, nil
}

// Expiry returns the grant expiry for the pair, zero when absent.
func (s *Service) Expiry(ctx context.Context, owner, spender string) (int64, error) {
	grant, err := s.repo.Get(ctx, owner, spender)
	if err != nil {
		if errors.Is(err, ErrNoGrant) {
			return 0, nil
		}
		return 0, err
	}
	return grant.Expiry, nil
}

// FundPoolInput captures an owner moving funds into their delegation pool.
type FundPoolInput struct {
	Caller     string
	Amount     int64
	ClientTxID string
}

// FundPool moves value from the owner's account into the pool that spenders
// draw from. Spends can only ever dispense what was funded here first.
func (s *Service) FundPool(ctx context.Context, input FundPoolInput) (ledger.TransactionResult, error) {
	if input.Amount <= 0 {
		return ledger.TransactionResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	pool := PoolAccountCode(input.Caller)
	if err := s.ledger.EnsureAccount(ctx, pool); err != nil {
		return ledger.TransactionResult{}, err
	}
	return s.ledger.Transfer(ctx, input.Caller, pool, "allowance_fund", input.ClientTxID, input.Amount)
}

// SpendInput captures a delegated spend by the named spender.
type SpendInput struct {
	Caller     string
	Owner      string
	To         string
	Amount     int64
	ClientTxID string
}

// SpendResult describes the outcome of a successful delegated spend.
type SpendResult struct {
	TransactionID string
	Remaining     int64
}

// Spend moves funds from the owner's pool to the destination under the
// caller's grant. Checks run in order, each with its own rejection: grant
// exists, not expired (expiry == now counts as expired), amount within the
// remaining allowance, pool covers the amount. The ledger transfer is the
// commit point; the grant is decremented only after it succeeds, so a rejected
// call leaves both untouched.
func (s *Service) Spend(ctx context.Context, input SpendInput) (SpendResult, error) {
	if input.Amount <= 0 {
		return SpendResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grant, err := s.repo.Get(ctx, input.Owner, input.Caller)
	if err != nil {
		return SpendResult{}, err
	}

	now := s.clock.Now().Unix()
	if grant.Expiry <= now {
		return SpendResult{}, ErrGrantExpired
	}
	if input.Amount > grant.Remaining {
		return SpendResult{}, ErrGrantExceeded
	}

	res, err := s.ledger.Transfer(ctx, PoolAccountCode(input.Owner), input.To, "allowance_spend", input.ClientTxID, input.Amount)
	if err != nil {
		return SpendResult{}, err
	}

	grant.Remaining -= input.Amount
	if err := s.repo.Put(ctx, grant); err != nil {
		// The money already moved; undo the posting so the grant and the pool
		// stay consistent.
		if _, rerr := s.ledger.Transfer(ctx, input.To, PoolAccountCode(input.Owner), "allowance_spend_reversal", uuid.NewString(), input.Amount); rerr != nil {
			return SpendResult{}, fmt.Errorf("record spend: %v, reverse posting: %w", err, rerr)
		}
		return SpendResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindAllowanceSpend,
			Destination: input.To,
			Body:        fmt.Sprintf("Received %d from pool of %s via %s", input.Amount, input.Owner, input.Caller),
		})
	}

	return SpendResult{TransactionID: res.TransactionID, Remaining: grant.Remaining}, nil
}
