package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the account id is unknown.
var ErrNotFound = errors.New("account not found")

// Repository persists account metadata.
type Repository interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, id string) (Account, error)
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO escrow_accounts (id, owner, code, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`, accountID, account.Owner, account.Code, account.Status, account.CreatedAt.UTC())
	return err
}

// Get fetches account metadata by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	accountUUID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, err
	}
	row := r.db.QueryRow(ctx, `SELECT id, owner, code, status, created_at
        FROM escrow_accounts WHERE id = $1`, accountUUID)
	var a Account
	var idVal uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&idVal, &a.Owner, &a.Code, &a.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.ID = idVal.String()
	a.CreatedAt = createdAt.UTC()
	return a, nil
}
