package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles search_query_usage PostgreSQL operations. One row per
// (date, user, keyword); increments are additive upserts so concurrent
// writers never need a lock.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new usage Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IncrementUsage adds count query units to the (date, user, keyword) row,
// creating it if absent. keywordID may be nil for user-level usage.
func (r *Repository) IncrementUsage(ctx context.Context, userID uuid.UUID, keywordID *uuid.UUID, count int, usageDate time.Time) error {
	if count <= 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO search_query_usage (date, user_id, keyword_id, queries_used)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (date, user_id, keyword_id) DO UPDATE SET
		     queries_used = search_query_usage.queries_used + EXCLUDED.queries_used,
		     updated_at = NOW()`,
		usageDate, userID, keywordID, count)
	if err != nil {
		return fmt.Errorf("incrementing query usage: %w", err)
	}
	return nil
}

// UserDailyUsage returns the user's total usage across all keywords for
// the effective date.
func (r *Repository) UserDailyUsage(ctx context.Context, userID uuid.UUID, usageDate time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(queries_used), 0)
		 FROM search_query_usage
		 WHERE date = $1 AND user_id = $2`,
		usageDate, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("fetching user daily usage: %w", err)
	}
	return total, nil
}

// KeywordDailyUsage returns one keyword's usage for the effective date.
func (r *Repository) KeywordDailyUsage(ctx context.Context, userID uuid.UUID, keywordID uuid.UUID, usageDate time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(queries_used), 0)
		 FROM search_query_usage
		 WHERE date = $1 AND user_id = $2 AND keyword_id = $3`,
		usageDate, userID, keywordID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("fetching keyword daily usage: %w", err)
	}
	return total, nil
}
