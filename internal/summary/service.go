package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/pending"
)

var (
	// ErrAlreadyPending means an identical request is already being generated.
	ErrAlreadyPending = errors.New("summary generation already in progress")
	// ErrBudgetExceeded means today's projected token spend forbids the call.
	ErrBudgetExceeded = errors.New("daily token budget exceeded")
	// ErrNoArticles means there is nothing to summarize.
	ErrNoArticles = errors.New("no articles to summarize")
)

// TargetLatest requests a digest over whatever is current rather than a
// specific day.
const TargetLatest = "latest"

const cacheTTL = time.Hour

// TokenBudget admits or denies a generation call and books its spend.
type TokenBudget interface {
	CanMakeRequest(ctx context.Context) bool
	RecordUsage(ctx context.Context, total, input, output int) error
}

// Summary is a generated digest for one keyword.
type Summary struct {
	UserID      uuid.UUID `json:"user_id"`
	KeywordID   uuid.UUID `json:"keyword_id"`
	TargetDate  string    `json:"target_date"`
	Text        string    `json:"text"`
	Articles    int       `json:"articles"`
	TokensSpent int       `json:"tokens_spent"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Service coordinates digest generation: a pending guard against duplicate
// in-flight requests, token budget admission, the model call, usage
// bookkeeping, and a short-lived cache of the result.
type Service struct {
	gen     Generator
	budget  TokenBudget
	pending *pending.Registry
	rdb     redis.Cmdable
	now     func() time.Time
}

func NewService(gen Generator, budget TokenBudget, reg *pending.Registry, rdb redis.Cmdable) *Service {
	return &Service{
		gen:     gen,
		budget:  budget,
		pending: reg,
		rdb:     rdb,
		now:     time.Now,
	}
}

// Generate produces a digest for the keyword's articles. Identical concurrent
// requests collapse to one: callers racing the winner get ErrAlreadyPending.
func (s *Service) Generate(ctx context.Context, userID, keywordID uuid.UUID, targetDate string, keyword string, items []articles.Article) (Summary, error) {
	if targetDate == "" {
		targetDate = TargetLatest
	}
	if len(items) == 0 {
		return Summary{}, ErrNoArticles
	}

	key := pending.Key(userID.String(), keywordID.String(), targetDate)
	if !s.pending.TryMark(key) {
		return Summary{}, ErrAlreadyPending
	}
	defer s.pending.Clear(key)

	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	if !s.budget.CanMakeRequest(ctx) {
		return Summary{}, ErrBudgetExceeded
	}

	gen, err := s.gen.Summarize(ctx, keyword, items)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing %q: %w", keyword, err)
	}

	if err := s.budget.RecordUsage(ctx, gen.TotalTokens, gen.InputTokens, gen.OutputTokens); err != nil {
		slog.Warn("summary: token bookkeeping failed", "keyword", keyword, "error", err)
	}

	sum := Summary{
		UserID:      userID,
		KeywordID:   keywordID,
		TargetDate:  targetDate,
		Text:        gen.Text,
		Articles:    len(items),
		TokensSpent: gen.TotalTokens,
		GeneratedAt: s.now().UTC(),
	}
	s.store(ctx, key, sum)
	return sum, nil
}

func cacheKey(pendingKey string) string {
	return "summary:" + pendingKey
}

func (s *Service) cached(ctx context.Context, key string) (Summary, bool) {
	if s.rdb == nil {
		return Summary{}, false
	}
	raw, err := s.rdb.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("summary: cache read failed", "error", err)
		}
		return Summary{}, false
	}
	var sum Summary
	if err := json.Unmarshal([]byte(raw), &sum); err != nil {
		return Summary{}, false
	}
	return sum, true
}

func (s *Service) store(ctx context.Context, key string, sum Summary) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(key), raw, cacheTTL).Err(); err != nil {
		slog.Warn("summary: cache write failed", "error", err)
	}
}
