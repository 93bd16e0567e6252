package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceRepository hands out monotonically increasing per-day counters.
type SequenceRepository interface {
	// NextNumber atomically increments the counter for dayKey and returns the
	// post-increment value. The counter starts at 0 for an unseen day.
	NextNumber(ctx context.Context, dayKey string) (int, error)
}

type sequenceRepository struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository instantiates repository.
func NewSequenceRepository(pool *pgxpool.Pool) SequenceRepository {
	return &sequenceRepository{pool: pool}
}

func (r *sequenceRepository) NextNumber(ctx context.Context, dayKey string) (int, error) {
	const query = `
        INSERT INTO sequence_counters (day_key, last_number)
        VALUES ($1, 1)
        ON CONFLICT (day_key) DO UPDATE SET last_number = sequence_counters.last_number + 1
        RETURNING last_number`
	var n int
	if err := r.pool.QueryRow(ctx, query, dayKey).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
