package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kivu-pay/kivu_escrow/internal/ledger"
	"github.com/kivu-pay/kivu_escrow/internal/notification"
)

var (
	// ErrInvalidAmount rejects non-positive reveal amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidDeposit rejects negative commitment deposits.
	ErrInvalidDeposit = errors.New("deposit must not be negative")
	// ErrAlreadyRevealed indicates the commitment was already consumed.
	ErrAlreadyRevealed = errors.New("commitment already revealed")
)

// Service implements commit-reveal escrow: a committer locks a hash of
// (secret, recipient, amount) with a deposit, and anyone who later presents
// the matching preimage triggers the payout. Mutating operations are
// serialized so each reveal consumes its commitment exactly once.
type Service struct {
	mu            sync.Mutex
	repo          Repository
	ledger        ledger.Ledger
	depositPolicy DepositPolicy
	notifier      notification.Notifier
}

// NewService constructs an escrow service. An unrecognized deposit policy
// falls back to forfeiting deposits to the vault.
func NewService(repo Repository, ledgerBackend ledger.Ledger, depositPolicy DepositPolicy, notifier notification.Notifier) *Service {
	if !ValidDepositPolicy(depositPolicy) {
		depositPolicy = DepositForfeit
	}
	return &Service{repo: repo, ledger: ledgerBackend, depositPolicy: depositPolicy, notifier: notifier}
}

// CommitInput captures a caller locking a commitment key with a deposit.
type CommitInput struct {
	Caller     string
	Key        Key
	Deposit    int64
	ClientTxID string
}

// Commit stores the commitment and moves the attached deposit into the escrow
// vault. A key can only ever be committed once; a duplicate commit is rejected
// regardless of deposit.
func (s *Service) Commit(ctx context.Context, input CommitInput) error {
	if input.Deposit < 0 {
		return ErrInvalidDeposit
	}
	if input.Caller == "" {
		return fmt.Errorf("caller is required")
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.Get(ctx, input.Key); err == nil {
		return ErrCommitmentExists
	} else if !errors.Is(err, ErrCommitmentNotFound) {
		return err
	}

	if input.Deposit > 0 {
		if _, err := s.ledger.Transfer(ctx, input.Caller, ledger.EscrowVaultAccountCode, "escrow_deposit", input.ClientTxID, input.Deposit); err != nil {
			return err
		}
	}

	return s.repo.Create(ctx, Commitment{
		Key:       input.Key,
		Committer: input.Caller,
		Deposit:   input.Deposit,
	})
}

// RevealInput captures a revealer presenting the preimage of a commitment.
type RevealInput struct {
	Caller string
	Secret [SecretSize]byte
	To     string
	Amount int64
}

// RevealResult describes the outcome of a successful reveal.
type RevealResult struct {
	Key           Key
	TransactionID string
	Paid          int64
}

// Reveal recomputes the key from (secret, to, amount) and, if a live
// commitment exists under it, pays the amount from the vault to the bound
// recipient. A mismatched secret, recipient or amount derives a different key
// and therefore reads as an unknown commitment. A commitment can be revealed
// at most once; the deposit's disposition follows the configured policy.
func (s *Service) Reveal(ctx context.Context, input RevealInput) (RevealResult, error) {
	if input.Amount <= 0 {
		return RevealResult{}, ErrInvalidAmount
	}

	key := DeriveKey(input.Secret, input.To, input.Amount)

	s.mu.Lock()
	defer s.mu.Unlock()

	commitment, err := s.repo.Get(ctx, key)
	if err != nil {
		return RevealResult{}, err
	}
	if commitment.Revealed {
		return RevealResult{}, ErrAlreadyRevealed
	}

	payout := input.Amount
	var refund int64
	switch s.depositPolicy {
	case DepositToRecipient:
		payout += commitment.Deposit
	case DepositRefund:
		refund = commitment.Deposit
	}

	// The vault must cover every leg before the first posting; otherwise a
	// partial release would leave money moved for a rejected reveal.
	vault, err := s.ledger.Balance(ctx, ledger.EscrowVaultAccountCode)
	if err != nil {
		return RevealResult{}, err
	}
	if vault < payout+refund {
		return RevealResult{}, ledger.ErrInsufficientFunds
	}

	res, err := s.ledger.Transfer(ctx, ledger.EscrowVaultAccountCode, input.To, "escrow_release", uuid.NewString(), payout)
	if err != nil {
		return RevealResult{}, err
	}

	if refund > 0 {
		if _, err := s.ledger.Transfer(ctx, ledger.EscrowVaultAccountCode, commitment.Committer, "escrow_refund", uuid.NewString(), refund); err != nil {
			if _, rerr := s.ledger.Transfer(ctx, input.To, ledger.EscrowVaultAccountCode, "escrow_release_reversal", uuid.NewString(), payout); rerr != nil {
				return RevealResult{}, fmt.Errorf("refund deposit: %v, reverse release: %w", err, rerr)
			}
			return RevealResult{}, err
		}
	}

	if err := s.repo.MarkRevealed(ctx, key); err != nil {
		if _, rerr := s.ledger.Transfer(ctx, input.To, ledger.EscrowVaultAccountCode, "escrow_release_reversal", uuid.NewString(), payout); rerr != nil {
			return RevealResult{}, fmt.Errorf("mark revealed: %v, reverse release: %w", err, rerr)
		}
		if refund > 0 {
			if _, rerr := s.ledger.Transfer(ctx, commitment.Committer, ledger.EscrowVaultAccountCode, "escrow_refund_reversal", uuid.NewString(), refund); rerr != nil {
				return RevealResult{}, fmt.Errorf("mark revealed: %v, reverse refund: %w", err, rerr)
			}
		}
		return RevealResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindEscrowRelease,
			Destination: input.To,
			Body:        fmt.Sprintf("Commitment %s released %d (revealed by %s)", key.Hex(), payout, input.Caller),
		})
	}

	return RevealResult{Key: key, TransactionID: res.TransactionID, Paid: payout}, nil
}
