package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kivu-pay/kivu_escrow/internal/account"
	"github.com/kivu-pay/kivu_escrow/internal/allowance"
	"github.com/kivu-pay/kivu_escrow/internal/clock"
	"github.com/kivu-pay/kivu_escrow/internal/config"
	"github.com/kivu-pay/kivu_escrow/internal/escrow"
	"github.com/kivu-pay/kivu_escrow/internal/ledger"
	"github.com/kivu-pay/kivu_escrow/internal/middleware"
	"github.com/kivu-pay/kivu_escrow/internal/notification"
	"github.com/kivu-pay/kivu_escrow/internal/stream"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	Clock  clock.Clock
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Clock == nil {
		d.Clock = clock.System()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	// The shared module accounts must exist before any policy call posts to them.
	ctx := context.Background()
	for _, code := range []string{
		ledger.FundingSuspenseAccountCode,
		ledger.StreamVaultAccountCode,
		ledger.EscrowVaultAccountCode,
	} {
		if err := ledgerBackend.EnsureAccount(ctx, code); err != nil {
			return fmt.Errorf("ensure module account %s: %w", code, err)
		}
	}

	var accountRepo account.Repository
	var allowanceRepo allowance.Repository
	var streamRepo stream.Repository
	var escrowRepo escrow.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		allowanceRepo = allowance.NewPostgresRepository(d.DB)
		streamRepo = stream.NewPostgresRepository(d.DB)
		escrowRepo = escrow.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		allowanceRepo = allowance.NewMemoryRepository()
		streamRepo = stream.NewMemoryRepository()
		escrowRepo = escrow.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	accountSvc := account.NewService(accountRepo, ledgerBackend)
	allowanceSvc := allowance.NewService(allowanceRepo, ledgerBackend, d.Clock, notifier)
	streamSvc := stream.NewService(streamRepo, ledgerBackend, d.Clock, notifier)
	escrowSvc := escrow.NewService(escrowRepo, ledgerBackend, escrow.DepositPolicy(d.Cfg.DepositPolicy), notifier)

	accountHandler := account.NewHandler(accountSvc)
	allowanceHandler := allowance.NewHandler(allowanceSvc)
	streamHandler := stream.NewHandler(streamSvc)
	escrowHandler := escrow.NewHandler(escrowSvc)

	api := app.Group("/api/v1")

	// Reads need no caller identity.
	api.Get("/allowances/:owner/:spender", allowanceHandler.Get)
	api.Get("/streams/:streamId/withdrawable", streamHandler.Withdrawable)
	api.Get("/accounts/:accountId/balance", accountHandler.Balance)

	// Account provisioning and deposits come from the operator side, not a
	// ledger caller.
	api.Post("/accounts", accountHandler.Create)
	api.Post("/accounts/:accountId/deposit", accountHandler.Deposit)

	// Every policy mutation requires an authenticated caller account and is
	// rate limited per caller.
	mutations := api.Group("", middleware.Caller(), middleware.MutationRateLimit(d.Cache, d.Cfg.MutationRateLimit))
	mutations.Put("/allowances/:spender", allowanceHandler.Set)
	mutations.Post("/allowances/fund", allowanceHandler.Fund)
	mutations.Post("/allowances/:owner/spend", allowanceHandler.Spend)
	mutations.Post("/streams", streamHandler.Create)
	mutations.Post("/streams/:streamId/withdraw", streamHandler.Withdraw)
	mutations.Post("/escrow/commitments", escrowHandler.Commit)
	mutations.Post("/escrow/reveal", escrowHandler.Reveal)

	return nil
}
