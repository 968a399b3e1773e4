package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles fetch_history PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new fetch-history Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a ledger entry. Entries are immutable once written.
func (r *Repository) Insert(ctx context.Context, e Entry) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO fetch_history
		   (keyword_id, user_id, requested_start, requested_end,
		    actual_start, actual_end, articles_count, trigger_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		e.KeywordID, e.UserID, e.RequestedStart, e.RequestedEnd,
		e.ActualStart, e.ActualEnd, e.ArticlesCount, e.TriggerType,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting fetch history: %w", err)
	}
	return id, nil
}

// ListByKeyword returns all ledger entries for a keyword ordered by the
// start of their actually-covered window.
func (r *Repository) ListByKeyword(ctx context.Context, keywordID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, keyword_id, user_id, requested_start, requested_end,
		        actual_start, actual_end, articles_count, trigger_type, created_at
		 FROM fetch_history
		 WHERE keyword_id = $1
		 ORDER BY actual_start`, keywordID)
	if err != nil {
		return nil, fmt.Errorf("listing fetch history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.KeywordID, &e.UserID, &e.RequestedStart, &e.RequestedEnd,
			&e.ActualStart, &e.ActualEnd, &e.ArticlesCount, &e.TriggerType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning fetch history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fetch history rows: %w", err)
	}
	return entries, nil
}
