package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_TransferMaintainsBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "acct:a"); err != nil {
		t.Fatalf("ensure account a: %v", err)
	}
	if err := l.EnsureAccount(ctx, "acct:b"); err != nil {
		t.Fatalf("ensure account b: %v", err)
	}

	SeedBalance(l, "acct:a", 10_000)

	res, err := l.Transfer(ctx, "acct:a", "acct:b", "allowance_spend", "client-1", 1_500)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if res.FromBalance != 8_500 {
		t.Fatalf("expected from balance 8500, got %d", res.FromBalance)
	}
	if res.ToBalance != 1_500 {
		t.Fatalf("expected to balance 1500, got %d", res.ToBalance)
	}

	ledgerImpl := l.(*inMemoryLedger)
	total := ledgerImpl.balances["acct:a"] + ledgerImpl.balances["acct:b"]
	if total != 10_000 {
		t.Fatalf("ledger not balanced, total=%d", total)
	}
}

func TestInMemoryLedger_RejectedTransferChangesNothing(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "acct:a")
	l.EnsureAccount(ctx, "acct:b")
	SeedBalance(l, "acct:a", 100)

	if _, err := l.Transfer(ctx, "acct:a", "acct:b", "allowance_spend", "tx-1", 500); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := l.Transfer(ctx, "acct:a", "acct:missing", "allowance_spend", "tx-2", 50); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
	if _, err := l.Transfer(ctx, "acct:a", "acct:b", "allowance_spend", "tx-3", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Deposit(ctx, "acct:a", "account_deposit", "tx-4", -5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for deposit, got %v", err)
	}

	balance, err := l.Balance(ctx, "acct:a")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("rejected transfers must not move funds, balance=%d", balance)
	}
}

func TestInMemoryLedger_DuplicateTransaction(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "acct:a")
	l.EnsureAccount(ctx, "acct:b")
	SeedBalance(l, "acct:a", 5_000)

	if _, err := l.Transfer(ctx, "acct:a", "acct:b", "stream_payout", "dup", 500); err != nil {
		t.Fatalf("initial transfer failed: %v", err)
	}
	if _, err := l.Transfer(ctx, "acct:a", "acct:b", "stream_payout", "dup", 500); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestInMemoryLedger_ConcurrentTransfers(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "acct:a")
	l.EnsureAccount(ctx, "acct:b")
	SeedBalance(l, "acct:a", 100_000)
	ledgerImpl := l.(*inMemoryLedger)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txID := fmt.Sprintf("tx-%d", i)
			if _, err := l.Transfer(ctx, "acct:a", "acct:b", "stream_payout", txID, amount); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	total := ledgerImpl.balances["acct:a"] + ledgerImpl.balances["acct:b"]
	if total != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", total)
	}
}

func TestInMemoryLedger_Deposit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "acct:a")
	l.EnsureAccount(ctx, FundingSuspenseAccountCode)

	res, err := l.Deposit(ctx, "acct:a", "account_deposit", "client-dep", 2_000)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if res.ToBalance != 2_000 {
		t.Fatalf("expected balance 2000, got %d", res.ToBalance)
	}

	if _, err := l.Deposit(ctx, "acct:a", "account_deposit", "client-dep", 2_000); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate deposit error, got %v", err)
	}

	// The suspense account absorbs the debit so the books stay balanced.
	suspense, err := l.Balance(ctx, FundingSuspenseAccountCode)
	if err != nil {
		t.Fatalf("suspense balance: %v", err)
	}
	if suspense != -2_000 {
		t.Fatalf("expected suspense -2000, got %d", suspense)
	}
}
