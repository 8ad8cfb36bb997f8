package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kivu-pay/kivu_escrow/internal/clock"
	"github.com/kivu-pay/kivu_escrow/internal/ledger"
)

func newTestService(t *testing.T, start time.Time) (*Service, ledger.Ledger, *clock.Fake) {
	t.Helper()
	led := ledger.NewInMemory()
	ctx := context.Background()
	led.EnsureAccount(ctx, ledger.StreamVaultAccountCode)
	led.EnsureAccount(ctx, "sender")
	led.EnsureAccount(ctx, "recipient")
	clk := clock.NewFake(start)
	return NewService(NewMemoryRepository(), led, clk, nil), led, clk
}

func TestCreateAllocatesSequentialIDs(t *testing.T) {
	svc, led, _ := newTestService(t, time.Unix(1_000, 0))
	ctx := context.Background()
	ledger.SeedBalance(led, "sender", 1_000)

	first, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 100, Funding: 100})
	if err != nil {
		t.Fatalf("create first stream: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("first stream id must be 1, got %d", first.ID)
	}

	second, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 5, Cap: 50, Funding: 50})
	if err != nil {
		t.Fatalf("create second stream: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("second stream id must be 2, got %d", second.ID)
	}

	vault, _ := led.Balance(ctx, ledger.StreamVaultAccountCode)
	if vault != 150 {
		t.Fatalf("expected vault to hold 150, got %d", vault)
	}
}

func TestCreateValidatesInputs(t *testing.T) {
	svc, _, _ := newTestService(t, time.Unix(1_000, 0))
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 0, Cap: 100}); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 0}); !errors.Is(err, ErrInvalidCap) {
		t.Fatalf("expected invalid cap, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 100, Funding: -5}); !errors.Is(err, ErrInvalidFunding) {
		t.Fatalf("expected invalid funding, got %v", err)
	}
}

func TestWithdrawableAccruesAndClamps(t *testing.T) {
	start := time.Unix(5_000, 0)
	svc, led, clk := newTestService(t, start)
	ctx := context.Background()
	ledger.SeedBalance(led, "sender", 100)

	s, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 100, Funding: 100})
	if err != nil {
		t.Fatalf("create stream: %v", err)
	}

	// Nothing accrued at creation time.
	w, err := svc.Withdrawable(ctx, s.ID)
	if err != nil {
		t.Fatalf("withdrawable: %v", err)
	}
	if w != 0 {
		t.Fatalf("expected 0 at start, got %d", w)
	}

	clk.Advance(5 * time.Second)
	w, _ = svc.Withdrawable(ctx, s.ID)
	if w != 50 {
		t.Fatalf("expected 50 after 5s at rate 10, got %d", w)
	}

	// Reads are idempotent at a fixed instant.
	again, _ := svc.Withdrawable(ctx, s.ID)
	if again != w {
		t.Fatalf("withdrawable not idempotent: %d then %d", w, again)
	}

	// Accrual clamps at the cap no matter how much time passes.
	clk.Advance(1_000 * time.Second)
	w, _ = svc.Withdrawable(ctx, s.ID)
	if w != 100 {
		t.Fatalf("expected cap 100, got %d", w)
	}
}

func TestWithdrawSequenceExhaustsAtCap(t *testing.T) {
	start := time.Unix(20_000, 0)
	svc, led, clk := newTestService(t, start)
	ctx := context.Background()
	ledger.SeedBalance(led, "sender", 100)

	s, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 100, Funding: 100})
	if err != nil {
		t.Fatalf("create stream: %v", err)
	}

	clk.Advance(5 * time.Second)
	res, err := svc.Withdraw(ctx, s.ID, "recipient")
	if err != nil {
		t.Fatalf("first withdraw: %v", err)
	}
	if res.Amount != 50 || res.Withdrawn != 50 {
		t.Fatalf("expected 50/50, got amount=%d withdrawn=%d", res.Amount, res.Withdrawn)
	}

	// At T0+20 accrual is min(100, 200) = 100, minus 50 already paid.
	clk.Advance(15 * time.Second)
	w, _ := svc.Withdrawable(ctx, s.ID)
	if w != 50 {
		t.Fatalf("expected 50 withdrawable at T0+20, got %d", w)
	}
	res, err = svc.Withdraw(ctx, s.ID, "recipient")
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if res.Amount != 50 || res.Withdrawn != 100 {
		t.Fatalf("expected 50/100, got amount=%d withdrawn=%d", res.Amount, res.Withdrawn)
	}

	// Stream exhausted: withdrawable stays 0 forever after.
	clk.Advance(1_000 * time.Second)
	w, _ = svc.Withdrawable(ctx, s.ID)
	if w != 0 {
		t.Fatalf("expected 0 after exhaustion, got %d", w)
	}
	if _, err := svc.Withdraw(ctx, s.ID, "recipient"); !errors.Is(err, ErrNothingToWithdraw) {
		t.Fatalf("expected nothing-to-withdraw, got %v", err)
	}

	balance, _ := led.Balance(ctx, "recipient")
	if balance != 100 {
		t.Fatalf("total payouts must equal cap, recipient has %d", balance)
	}
}

func TestWithdrawAnyCallerPaysRecipient(t *testing.T) {
	start := time.Unix(40_000, 0)
	svc, led, clk := newTestService(t, start)
	ctx := context.Background()
	ledger.SeedBalance(led, "sender", 100)

	s, _ := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 100, Funding: 100})
	clk.Advance(3 * time.Second)

	// A third party pokes the withdrawal; funds still land with the recipient.
	if _, err := svc.Withdraw(ctx, s.ID, "somebody-else"); err != nil {
		t.Fatalf("withdraw by third party: %v", err)
	}
	balance, _ := led.Balance(ctx, "recipient")
	if balance != 30 {
		t.Fatalf("expected recipient to receive 30, got %d", balance)
	}
}

func TestWithdrawUnderfundedStreamRejectsAndKeepsState(t *testing.T) {
	start := time.Unix(60_000, 0)
	svc, led, clk := newTestService(t, start)
	ctx := context.Background()
	ledger.SeedBalance(led, "sender", 40)

	// Fund below the cap: legal at creation, rejected at payout time.
	s, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 100, Funding: 40})
	if err != nil {
		t.Fatalf("create underfunded stream: %v", err)
	}

	clk.Advance(10 * time.Second)
	if _, err := svc.Withdraw(ctx, s.ID, "recipient"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	got, err := svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	if got.Withdrawn != 0 {
		t.Fatalf("rejected withdraw must not advance withdrawn, got %d", got.Withdrawn)
	}
}

type updateFailRepo struct {
	Repository
	fail bool
}

func (r *updateFailRepo) UpdateWithdrawn(ctx context.Context, id int64, withdrawn int64) error {
	if r.fail {
		return errors.New("storage offline")
	}
	return r.Repository.UpdateWithdrawn(ctx, id, withdrawn)
}

func TestWithdrawReversesPayoutWhenRecordFails(t *testing.T) {
	start := time.Unix(80_000, 0)
	led := ledger.NewInMemory()
	ctx := context.Background()
	led.EnsureAccount(ctx, ledger.StreamVaultAccountCode)
	led.EnsureAccount(ctx, "sender")
	led.EnsureAccount(ctx, "recipient")
	ledger.SeedBalance(led, "sender", 100)
	clk := clock.NewFake(start)
	repo := &updateFailRepo{Repository: NewMemoryRepository()}
	svc := NewService(repo, led, clk, nil)

	s, err := svc.Create(ctx, CreateInput{Caller: "sender", Recipient: "recipient", RatePerSecond: 10, Cap: 100, Funding: 100})
	if err != nil {
		t.Fatalf("create stream: %v", err)
	}

	clk.Advance(5 * time.Second)
	repo.fail = true
	if _, err := svc.Withdraw(ctx, s.ID, "recipient"); err == nil {
		t.Fatal("expected withdraw to fail when the record write fails")
	}

	// The failed withdrawal must not leave money moved with the counter stale.
	vault, _ := led.Balance(ctx, ledger.StreamVaultAccountCode)
	if vault != 100 {
		t.Fatalf("expected vault restored to 100, got %d", vault)
	}
	recipient, _ := led.Balance(ctx, "recipient")
	if recipient != 0 {
		t.Fatalf("failed withdraw left funds with recipient: %d", recipient)
	}
	got, _ := svc.Get(ctx, s.ID)
	if got.Withdrawn != 0 {
		t.Fatalf("failed withdraw must not advance withdrawn, got %d", got.Withdrawn)
	}

	repo.fail = false
	res, err := svc.Withdraw(ctx, s.ID, "recipient")
	if err != nil {
		t.Fatalf("withdraw after recovery: %v", err)
	}
	if res.Amount != 50 {
		t.Fatalf("expected payout 50 after recovery, got %d", res.Amount)
	}
}

func TestWithdrawableUnknownStream(t *testing.T) {
	svc, _, _ := newTestService(t, time.Unix(1_000, 0))
	if _, err := svc.Withdrawable(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccrualClampsNegativeElapsed(t *testing.T) {
	s := Stream{RatePerSecond: 10, Cap: 100, StartTime: 1_000}
	if got := s.WithdrawableAt(900); got != 0 {
		t.Fatalf("negative elapsed must clamp to 0, got %d", got)
	}
}

func TestAccrualSaturatesOnOverflow(t *testing.T) {
	s := Stream{RatePerSecond: 1 << 40, Cap: 500, StartTime: 0}
	if got := s.AccruedAt(1 << 40); got != 500 {
		t.Fatalf("overflowing accrual must clamp to cap, got %d", got)
	}
}
