package articles

import (
	"time"

	"github.com/google/uuid"

	"github.com/newsradar-io/newsradar/internal/sentiment"
)

// Candidate is a transient search or feed result. It only becomes an
// Article after surviving the near-duplicate filter.
type Candidate struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Snippet     string            `json:"snippet"`
	Source      string            `json:"source"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Lang        string            `json:"lang,omitempty"`
	Sentiment   *sentiment.Result `json:"sentiment,omitempty"`
}

// Article matches the articles table schema.
type Article struct {
	ID             uuid.UUID  `json:"id"`
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	Snippet        string     `json:"snippet"`
	Source         string     `json:"source"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	Lang           string     `json:"lang,omitempty"`
	SentimentLabel string     `json:"sentiment_label,omitempty"`
	SentimentScore float64    `json:"sentiment_score,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
