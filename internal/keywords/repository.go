package keywords

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a keyword does not exist.
var ErrNotFound = errors.New("keyword not found")

// Repository handles keywords PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new keyword Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns one keyword by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Keyword, error) {
	var k Keyword
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, text, status, last_crawled_at, created_at
		 FROM keywords WHERE id = $1`, id,
	).Scan(&k.ID, &k.UserID, &k.Text, &k.Status, &k.LastCrawledAt, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Keyword{}, ErrNotFound
	}
	if err != nil {
		return Keyword{}, fmt.Errorf("fetching keyword: %w", err)
	}
	return k, nil
}

// ActiveUserCount returns how many distinct users own at least one active
// keyword. This is the population the daily search budget is split across.
func (r *Repository) ActiveUserCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM keywords WHERE status = $1`,
		StatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active users: %w", err)
	}
	return count, nil
}

// ActiveKeywordCount returns how many active keywords the user owns.
func (r *Repository) ActiveKeywordCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM keywords WHERE user_id = $1 AND status = $2`,
		userID, StatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active keywords: %w", err)
	}
	return count, nil
}

// ListDue returns active keywords not crawled within the given interval,
// least-recently-crawled first. Never-crawled keywords come before all
// others.
func (r *Repository) ListDue(ctx context.Context, olderThan time.Duration, limit int) ([]Keyword, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, text, status, last_crawled_at, created_at
		 FROM keywords
		 WHERE status = $1
		   AND (last_crawled_at IS NULL OR last_crawled_at < NOW() - make_interval(secs => $2))
		 ORDER BY last_crawled_at NULLS FIRST
		 LIMIT $3`,
		StatusActive, olderThan.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("listing due keywords: %w", err)
	}
	defer rows.Close()

	var out []Keyword
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.UserID, &k.Text, &k.Status, &k.LastCrawledAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning keyword row: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword rows: %w", err)
	}
	return out, nil
}

// TouchLastCrawled records that a collection cycle just completed for the
// keyword.
func (r *Repository) TouchLastCrawled(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE keywords SET last_crawled_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("updating last_crawled_at: %w", err)
	}
	return nil
}
