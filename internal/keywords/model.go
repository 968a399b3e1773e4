package keywords

import (
	"time"

	"github.com/google/uuid"
)

// Keyword matches the keywords table schema.
type Keyword struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Text          string     `json:"text"`
	Status        string     `json:"status"`
	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Keyword statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
)
