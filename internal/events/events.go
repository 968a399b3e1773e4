package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	// StreamEvents holds collection lifecycle events.
	StreamEvents = "NEWSRADAR_EVENTS"
	// StreamTasks is the work queue of manually requested collection runs.
	StreamTasks = "NEWSRADAR_TASKS"
)

// Subject constants.
const (
	SubjectCycleCompleted   = "newsradar.events.cycle.completed"
	SubjectQuotaDenied      = "newsradar.events.quota.denied"
	SubjectSummaryGenerated = "newsradar.events.summary.generated"
	SubjectCollectTask      = "newsradar.tasks.collect"
)

// CollectTask is published by the API when a user requests an immediate
// collection run; the scheduler consumes it.
type CollectTask struct {
	KeywordID      uuid.UUID  `json:"keyword_id"`
	UserID         uuid.UUID  `json:"user_id"`
	RequestedStart *time.Time `json:"requested_start,omitempty"`
	RequestedEnd   *time.Time `json:"requested_end,omitempty"`
	RequestedAt    time.Time  `json:"requested_at"`
}

// CycleCompleted is published after a collection cycle finishes for a keyword.
type CycleCompleted struct {
	KeywordID       uuid.UUID `json:"keyword_id"`
	UserID          uuid.UUID `json:"user_id"`
	Keyword         string    `json:"keyword"`
	TriggerType     string    `json:"trigger_type"`
	ArticlesStored  int       `json:"articles_stored"`
	DuplicatesCount int       `json:"duplicates_count"`
	PagesSpent      int       `json:"pages_spent"`
	GapsCovered     int       `json:"gaps_covered"`
	CompletedAt     time.Time `json:"completed_at"`
}

// QuotaDenied is published when admission control blocks a cycle outright.
type QuotaDenied struct {
	KeywordID uuid.UUID `json:"keyword_id"`
	UserID    uuid.UUID `json:"user_id"`
	Keyword   string    `json:"keyword"`
	DeniedAt  time.Time `json:"denied_at"`
}

// SummaryGenerated is published after a digest is produced.
type SummaryGenerated struct {
	KeywordID   uuid.UUID `json:"keyword_id"`
	UserID      uuid.UUID `json:"user_id"`
	TargetDate  string    `json:"target_date"`
	Articles    int       `json:"articles"`
	TokensSpent int       `json:"tokens_spent"`
	GeneratedAt time.Time `json:"generated_at"`
}
