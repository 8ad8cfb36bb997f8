package stream

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
	// ErrInvalidRate rejects a non-positive accrual rate.
	ErrInvalidRate = errors.New("rate must be positive")
	// ErrInvalidCap rejects a non-positive cap.
	ErrInvalidCap = errors.New("cap must be positive")
	// ErrInvalidFunding rejects negative funding attached to stream creation.
	ErrInvalidFunding = errors.New("funding must not be negative")
	// ErrNothingToWithdraw indicates no value has accrued beyond what was already paid.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
)

// Service implements the stream accrual engine. Accrual is computed lazily
// from the clock on every read; nothing ticks in the background. Mutating
// operations are serialized so a withdrawal either updates the record and
// moves funds together or does neither.
type Service struct {
	mu       sync.Mutex
	repo     Repository
	ledger   ledger.Ledger
	clock    clock.Clock
	notifier notification.Notifier
}

// NewService constructs a stream service.
func NewService(repo Repository, ledgerBackend ledger.Ledger, clk clock.Clock, notifier notification.Notifier) *Service {
	return &Service{repo: repo, ledger: ledgerBackend, clock: clk, notifier: notifier}
}

// CreateInput captures a sender opening a funded stream.
type CreateInput struct {
	Caller        string
	Recipient     string
	RatePerSecond int64
	Cap           int64
	Funding       int64
	ClientTxID    string
}

// Create opens a stream accruing from now and moves the attached funding into
// the stream vault in the same operation. Funding below the cap is legal at
// creation; the shortfall surfaces as an insufficient-funds rejection at
// payout time instead.
func (s *Service) Create(ctx context.Context, input CreateInput) (Stream, error) {
	if input.RatePerSecond <= 0 {
		return Stream{}, ErrInvalidRate
	}
	if input.Cap <= 0 {
		return Stream{}, ErrInvalidCap
	}
	if input.Funding < 0 {
		return Stream{}, ErrInvalidFunding
	}
	if input.Caller == "" || input.Recipient == "" {
		return Stream{}, fmt.Errorf("sender and recipient are required")
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Funding > 0 {
		if _, err := s.ledger.Transfer(ctx, input.Caller, ledger.StreamVaultAccountCode, "stream_fund", input.ClientTxID, input.Funding); err != nil {
			return Stream{}, err
		}
	}

	record := Stream{
		Sender:        input.Caller,
		Recipient:     input.Recipient,
		RatePerSecond: input.RatePerSecond,
		Cap:           input.Cap,
		StartTime:     s.clock.Now().Unix(),
	}
	id, err := s.repo.Create(ctx, record)
	if err != nil {
		return Stream{}, err
	}
	record.ID = id
	return record, nil
}

// Get returns the stream record.
func (s *Service) Get(ctx context.Context, id int64) (Stream, error) {
	return s.repo.Get(ctx, id)
}

// Withdrawable returns the accrued-but-unpaid amount for the stream at the
// current time. It is side-effect-free: repeated calls at the same instant
// return the same value, and the value never decreases as time advances.
func (s *Service) Withdrawable(ctx context.Context, id int64) (int64, error) {
	stream, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return stream.WithdrawableAt(s.clock.Now().Unix()), nil
}

// WithdrawResult describes the outcome of a successful stream payout.
type WithdrawResult struct {
	TransactionID string
	Amount        int64
	Withdrawn     int64
}

// Withdraw pays the currently withdrawable amount to the stream's recorded
// recipient. Any caller may trigger the payout; the destination is always the
// recipient on record. The vault transfer is the commit point: if it is
// rejected the withdrawn counter is unchanged.
func (s *Service) Withdraw(ctx context.Context, id int64, caller string) (WithdrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, err := s.repo.Get(ctx, id)
	if err != nil {
		return WithdrawResult{}, err
	}

	amount := stream.WithdrawableAt(s.clock.Now().Unix())
	if amount == 0 {
		return WithdrawResult{}, ErrNothingToWithdraw
	}

	res, err := s.ledger.Transfer(ctx, ledger.StreamVaultAccountCode, stream.Recipient, "stream_payout", uuid.NewString(), amount)
	if err != nil {
		return WithdrawResult{}, err
	}

	withdrawn := stream.Withdrawn + amount
	if err := s.repo.UpdateWithdrawn(ctx, id, withdrawn); err != nil {
		// The money already moved; undo the payout so the counter and the
		// vault stay consistent.
		if _, rerr := s.ledger.Transfer(ctx, stream.Recipient, ledger.StreamVaultAccountCode, "stream_payout_reversal", uuid.NewString(), amount); rerr != nil {
			return WithdrawResult{}, fmt.Errorf("record withdrawal: %v, reverse posting: %w", err, rerr)
		}
		return WithdrawResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindStreamPayout,
			Destination: stream.Recipient,
			Body:        fmt.Sprintf("Stream %d paid out %d (triggered by %s)", id, amount, caller),
		})
	}

	return WithdrawResult{TransactionID: res.TransactionID, Amount: amount, Withdrawn: withdrawn}, nil
}
