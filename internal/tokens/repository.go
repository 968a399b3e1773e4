package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles token_usage PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new token-usage Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IncrementUsage adds token counts to the day's row, creating it if absent.
func (r *Repository) IncrementUsage(ctx context.Context, usageDate time.Time, total, input, output int) error {
	if total <= 0 && input <= 0 && output <= 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_usage (date, total_tokens, input_tokens, output_tokens)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (date) DO UPDATE SET
		     total_tokens = token_usage.total_tokens + EXCLUDED.total_tokens,
		     input_tokens = token_usage.input_tokens + EXCLUDED.input_tokens,
		     output_tokens = token_usage.output_tokens + EXCLUDED.output_tokens,
		     updated_at = NOW()`,
		usageDate, total, input, output)
	if err != nil {
		return fmt.Errorf("incrementing token usage: %w", err)
	}
	return nil
}

// UsageForDate returns the day's counters. A missing row is zero usage,
// not an error.
func (r *Repository) UsageForDate(ctx context.Context, usageDate time.Time) (UsageDay, error) {
	var u UsageDay
	err := r.pool.QueryRow(ctx,
		`SELECT date, total_tokens, input_tokens, output_tokens, updated_at
		 FROM token_usage
		 WHERE date = $1`, usageDate,
	).Scan(&u.Date, &u.TotalTokens, &u.InputTokens, &u.OutputTokens, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UsageDay{Date: usageDate}, nil
	}
	if err != nil {
		return UsageDay{}, fmt.Errorf("fetching token usage: %w", err)
	}
	return u, nil
}
