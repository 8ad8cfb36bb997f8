package escrow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores commitments in PostgreSQL keyed by hex-encoded hash.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a commitment repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the commitment, rejecting duplicate keys.
func (r *PostgresRepository) Create(ctx context.Context, commitment Commitment) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO commitments (key, committer, deposit, revealed)
        VALUES ($1, $2, $3, false) ON CONFLICT (key) DO NOTHING`,
		commitment.Key.Hex(), commitment.Committer, commitment.Deposit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommitmentExists
	}
	return nil
}

// Get fetches the commitment under the key.
func (r *PostgresRepository) Get(ctx context.Context, key Key) (Commitment, error) {
	row := r.db.QueryRow(ctx, `SELECT key, committer, deposit, revealed
        FROM commitments WHERE key = $1`, key.Hex())
	var keyHex string
	var c Commitment
	if err := row.Scan(&keyHex, &c.Committer, &c.Deposit, &c.Revealed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Commitment{}, ErrCommitmentNotFound
		}
		return Commitment{}, err
	}
	parsed, err := ParseKey(keyHex)
	if err != nil {
		return Commitment{}, err
	}
	c.Key = parsed
	return c, nil
}

// MarkRevealed flips the commitment to revealed; the WHERE clause makes the
// transition one-way even under concurrent revealers.
func (r *PostgresRepository) MarkRevealed(ctx context.Context, key Key) error {
	tag, err := r.db.Exec(ctx, `UPDATE commitments SET revealed = true
        WHERE key = $1 AND revealed = false`, key.Hex())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommitmentNotFound
	}
	return nil
}
