package allowance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores allowance grants in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a grant repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Put upserts the grant for (owner, spender), replacing any prior remaining balance.
func (r *PostgresRepository) Put(ctx context.Context, grant Grant) error {
	_, err := r.db.Exec(ctx, `INSERT INTO allowance_grants (owner, spender, remaining, expiry)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (owner, spender) DO UPDATE SET remaining = EXCLUDED.remaining, expiry = EXCLUDED.expiry`,
		grant.Owner, grant.Spender, grant.Remaining, grant.Expiry)
	return err
}

// Get fetches the grant for the pair.
func (r *PostgresRepository) Get(ctx context.Context, owner, spender string) (Grant, error) {
	row := r.db.QueryRow(ctx, `SELECT owner, spender, remaining, expiry
        FROM allowance_grants WHERE owner = $1 AND spender = $2`, owner, spender)
	var g Grant
	if err := row.Scan(&g.Owner, &g.Spender, &g.Remaining, &g.Expiry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, ErrNoGrant
		}
		return Grant{}, err
	}
	return g, nil
}
