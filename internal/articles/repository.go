package articles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles articles and keyword_articles PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new article Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertBatch stores candidates and returns their article IDs. Persistence
// is idempotent on URL: a re-fetched article refreshes its title and
// sentiment instead of creating a second row, which is what makes a
// refetch of an already-persisted window harmless.
func (r *Repository) UpsertBatch(ctx context.Context, cands []Candidate) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(cands))
	for _, c := range cands {
		var label string
		var score float64
		if c.Sentiment != nil {
			label = c.Sentiment.Label
			score = c.Sentiment.Score
		}

		var id uuid.UUID
		err := r.pool.QueryRow(ctx,
			`INSERT INTO articles (url, title, snippet, source, published_at, lang, sentiment_label, sentiment_score)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (url) DO UPDATE SET
			     title = EXCLUDED.title,
			     sentiment_label = EXCLUDED.sentiment_label,
			     sentiment_score = EXCLUDED.sentiment_score
			 RETURNING id`,
			c.URL, c.Title, c.Snippet, c.Source, c.PublishedAt, c.Lang, label, score,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upserting article %s: %w", c.URL, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LinkKeyword maps articles to the keyword they were collected for.
func (r *Repository) LinkKeyword(ctx context.Context, keywordID uuid.UUID, articleIDs []uuid.UUID) error {
	for _, id := range articleIDs {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO keyword_articles (keyword_id, article_id)
			 VALUES ($1, $2)
			 ON CONFLICT (keyword_id, article_id) DO NOTHING`,
			keywordID, id)
		if err != nil {
			return fmt.Errorf("linking article to keyword: %w", err)
		}
	}
	return nil
}

// RecentByKeyword returns the most recently collected articles for a
// keyword, newest first. It backs the cache-hit path when the gap
// calculator finds nothing to collect.
func (r *Repository) RecentByKeyword(ctx context.Context, keywordID uuid.UUID, limit int) ([]Article, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.url, a.title, a.snippet, a.source, a.published_at, a.lang,
		        a.sentiment_label, a.sentiment_score, a.created_at
		 FROM articles a
		 JOIN keyword_articles ka ON ka.article_id = a.id
		 WHERE ka.keyword_id = $1
		 ORDER BY a.published_at DESC NULLS LAST, a.created_at DESC
		 LIMIT $2`, keywordID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching recent articles: %w", err)
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Snippet, &a.Source, &a.PublishedAt,
			&a.Lang, &a.SentimentLabel, &a.SentimentScore, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning article row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating article rows: %w", err)
	}
	return out, nil
}
