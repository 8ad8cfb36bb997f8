package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInvalidAmount occurs when a posting is requested for a non-positive
	// amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound indicates the referenced account code has never been
	// provisioned.
	ErrAccountNotFound = errors.New("account not found")
)

const (
	// FundingSuspenseAccountCode is the counter-account for value entering the
	// system from outside, so that external deposits stay double-entry balanced.
	FundingSuspenseAccountCode = "suspense:funding"

	// StreamVaultAccountCode holds funding attached to payment streams until the
	// recipients withdraw it.
	StreamVaultAccountCode = "stream:vault"

	// EscrowVaultAccountCode holds commitment deposits and escrowed payouts until
	// a reveal releases them.
	EscrowVaultAccountCode = "escrow:vault"
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// Ledger is the atomic value-transfer collaborator every policy module posts
// through. A Transfer either moves the full amount or leaves both balances
// untouched; no partial postings are ever observable.
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	// Deposit credits an account with value arriving from outside the system,
	// debiting the funding suspense account. It is the service-side analog of
	// value attached to an incoming call.
	Deposit(ctx context.Context, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
}
