package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/newsradar-io/newsradar/internal/interval"
)

// Entry matches the fetch_history table schema. Rows are append-only
// evidence of what has already been collected for a keyword; they are
// never mutated or deleted.
type Entry struct {
	ID             uuid.UUID  `json:"id"`
	KeywordID      uuid.UUID  `json:"keyword_id"`
	UserID         uuid.UUID  `json:"user_id"`
	RequestedStart *time.Time `json:"requested_start,omitempty"`
	RequestedEnd   *time.Time `json:"requested_end,omitempty"`
	ActualStart    time.Time  `json:"actual_start"`
	ActualEnd      time.Time  `json:"actual_end"`
	ArticlesCount  int        `json:"articles_count"`
	TriggerType    string     `json:"trigger_type"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ActualRange returns the window the entry actually covered.
func (e Entry) ActualRange() interval.Interval {
	return interval.New(e.ActualStart, e.ActualEnd)
}

// Trigger types recorded on ledger entries.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)
