package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kivu-pay/kivu_escrow/internal/ledger"
)

const statusActive = "active"

// Service exposes account operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds an account service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// CreateInput captures data required to open an account.
type CreateInput struct {
	Owner string
}

// Create provisions an account and its associated ledger account.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		return Account{}, fmt.Errorf("owner is required")
	}

	accountID := uuid.New().String()
	code := fmt.Sprintf("acct:%s", accountID)

	if err := s.ledger.EnsureAccount(ctx, code); err != nil {
		return Account{}, err
	}

	account := Account{
		ID:        accountID,
		Owner:     owner,
		Code:      code,
		Status:    statusActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}

	return account, nil
}

// Get retrieves account metadata.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Balance returns the ledger balance for the account.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, account.Code)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountID: account.ID, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Deposit credits the account with externally originated value. ClientTxID
// makes retried deposits idempotent at the ledger layer.
func (s *Service) Deposit(ctx context.Context, id, clientTxID string, amount int64) (ledger.TransactionResult, error) {
	if amount <= 0 {
		return ledger.TransactionResult{}, fmt.Errorf("amount must be positive")
	}
	if clientTxID == "" {
		clientTxID = uuid.NewString()
	}
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return ledger.TransactionResult{}, err
	}
	return s.ledger.Deposit(ctx, account.Code, "account_deposit", clientTxID, amount)
}
