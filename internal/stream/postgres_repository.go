package stream

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores streams in PostgreSQL. The BIGSERIAL primary key
// provides the strictly increasing, never reused identifier sequence.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a stream repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the stream and returns its allocated id.
func (r *PostgresRepository) Create(ctx context.Context, stream Stream) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO streams (sender, recipient, rate_per_second, cap, start_time, withdrawn)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		stream.Sender, stream.Recipient, stream.RatePerSecond, stream.Cap, stream.StartTime, stream.Withdrawn).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get fetches the stream by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Stream, error) {
	row := r.db.QueryRow(ctx, `SELECT id, sender, recipient, rate_per_second, cap, start_time, withdrawn
        FROM streams WHERE id = $1`, id)
	var s Stream
	if err := row.Scan(&s.ID, &s.Sender, &s.Recipient, &s.RatePerSecond, &s.Cap, &s.StartTime, &s.Withdrawn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stream{}, ErrNotFound
		}
		return Stream{}, err
	}
	return s, nil
}

// UpdateWithdrawn records the new cumulative withdrawn amount. The guard
// clauses keep withdrawn monotonic and within the cap even under a buggy caller.
func (r *PostgresRepository) UpdateWithdrawn(ctx context.Context, id int64, withdrawn int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE streams SET withdrawn = $2
        WHERE id = $1 AND $2 >= withdrawn AND $2 <= cap`, id, withdrawn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
