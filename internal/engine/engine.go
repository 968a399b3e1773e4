package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/dedup"
	"github.com/newsradar-io/newsradar/internal/events"
	"github.com/newsradar-io/newsradar/internal/history"
	"github.com/newsradar-io/newsradar/internal/interval"
	"github.com/newsradar-io/newsradar/internal/keywords"
	"github.com/newsradar-io/newsradar/internal/metrics"
	"github.com/newsradar-io/newsradar/internal/search"
	"github.com/newsradar-io/newsradar/internal/sentiment"
)

// Outcome classifies how a collection cycle ended.
type Outcome string

const (
	// OutcomeCollected means new articles were fetched and persisted.
	OutcomeCollected Outcome = "collected"
	// OutcomeCovered means the fetch ledger already covers the window, so
	// the cycle served stored articles without spending any API quota.
	OutcomeCovered Outcome = "covered"
	// OutcomeQuotaDenied means admission control blocked the cycle before
	// any page was fetched.
	OutcomeQuotaDenied Outcome = "quota_denied"
	// OutcomeFailed means the cycle aborted on an error.
	OutcomeFailed Outcome = "failed"
)

// GapPlanner computes uncovered windows from the fetch ledger and records
// newly covered ones.
type GapPlanner interface {
	ComputeGaps(ctx context.Context, keywordID uuid.UUID, requested *interval.Interval) ([]interval.Interval, error)
	Record(ctx context.Context, e history.Entry) error
}

// Admission partitions the shared API budget and books spend against it.
type Admission interface {
	CanSpend(ctx context.Context, userID uuid.UUID, keywordID *uuid.UUID, n int) (bool, error)
	RecordUsage(ctx context.Context, userID uuid.UUID, keywordID *uuid.UUID, n int) error
}

// Searcher fetches candidates from the metered search API.
type Searcher interface {
	Search(ctx context.Context, keyword string, window *interval.Interval, max int, meter search.Meter) (search.Result, error)
}

// FeedCollector fetches candidates from unmetered RSS feeds.
type FeedCollector interface {
	Collect(ctx context.Context, keyword string, window *interval.Interval) []articles.Candidate
}

// ArticleStore persists deduplicated articles and their keyword links.
type ArticleStore interface {
	UpsertBatch(ctx context.Context, cands []articles.Candidate) ([]uuid.UUID, error)
	LinkKeyword(ctx context.Context, keywordID uuid.UUID, articleIDs []uuid.UUID) error
	RecentByKeyword(ctx context.Context, keywordID uuid.UUID, limit int) ([]articles.Article, error)
}

// ArticleCache is the read-through cache over recent articles.
type ArticleCache interface {
	Recent(ctx context.Context, keywordID uuid.UUID, limit int) ([]articles.Article, error)
	Store(ctx context.Context, keywordID uuid.UUID, arts []articles.Article, maxEntries int, ttl time.Duration) error
	Invalidate(ctx context.Context, keywordID uuid.UUID) error
}

// KeywordStore reads tracked keywords and updates their crawl bookkeeping.
type KeywordStore interface {
	Get(ctx context.Context, id uuid.UUID) (keywords.Keyword, error)
	ListDue(ctx context.Context, olderThan time.Duration, limit int) ([]keywords.Keyword, error)
	TouchLastCrawled(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Config bounds one collection cycle.
type Config struct {
	MaxResultsPerGap int
	RecentLimit      int
	CacheTTL         time.Duration
	CacheMaxEntries  int
}

func (c Config) withDefaults() Config {
	if c.MaxResultsPerGap <= 0 {
		c.MaxResultsPerGap = 100
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = 50
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Minute
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 100
	}
	return c
}

// Engine runs collection cycles: gap planning, quota admission, fetching,
// deduplication, sentiment scoring, persistence, and ledger bookkeeping.
type Engine struct {
	planner   GapPlanner
	admission Admission
	searcher  Searcher
	feeds     FeedCollector
	store     ArticleStore
	cache     ArticleCache
	keywords  KeywordStore
	analyzer  *sentiment.Analyzer
	publisher *events.Publisher
	cfg       Config
	now       func() time.Time
}

func New(planner GapPlanner, admission Admission, searcher Searcher, feeds FeedCollector,
	store ArticleStore, cache ArticleCache, kws KeywordStore, analyzer *sentiment.Analyzer,
	publisher *events.Publisher, cfg Config) *Engine {
	return &Engine{
		planner:   planner,
		admission: admission,
		searcher:  searcher,
		feeds:     feeds,
		store:     store,
		cache:     cache,
		keywords:  kws,
		analyzer:  analyzer,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// CycleRequest asks for one collection cycle over a keyword.
type CycleRequest struct {
	KeywordID   uuid.UUID
	Requested   *interval.Interval
	TriggerType string
}

// CycleResult is the typed outcome of one cycle.
type CycleResult struct {
	KeywordID      uuid.UUID
	Outcome        Outcome
	Articles       []articles.Article
	ArticlesStored int
	Duplicates     int
	Malformed      int
	PagesSpent     int
	GapsCovered    int
	GapsSkipped    int
	Err            error
}

// quotaMeter binds the admission service to one user and keyword so the
// search client can account pages without knowing who is spending.
type quotaMeter struct {
	admission Admission
	userID    uuid.UUID
	keywordID uuid.UUID
}

func (m *quotaMeter) CanSpend(ctx context.Context, n int) (bool, error) {
	return m.admission.CanSpend(ctx, m.userID, &m.keywordID, n)
}

func (m *quotaMeter) RecordSpent(ctx context.Context, n int) error {
	return m.admission.RecordUsage(ctx, m.userID, &m.keywordID, n)
}

// RunCollectionCycle executes one cycle. A quota denial before the first
// page yields OutcomeQuotaDenied with no ledger entry; a fully covered
// window serves stored articles without touching the API.
func (e *Engine) RunCollectionCycle(ctx context.Context, req CycleRequest) CycleResult {
	res := CycleResult{KeywordID: req.KeywordID}

	kw, err := e.keywords.Get(ctx, req.KeywordID)
	if err != nil {
		return e.failed(res, fmt.Errorf("loading keyword: %w", err))
	}
	if req.TriggerType == "" {
		req.TriggerType = history.TriggerScheduled
	}

	gaps, err := e.planner.ComputeGaps(ctx, kw.ID, req.Requested)
	if err != nil {
		return e.failed(res, fmt.Errorf("computing gaps: %w", err))
	}

	if len(gaps) == 0 {
		return e.serveCovered(ctx, kw, res)
	}

	ok, err := e.admission.CanSpend(ctx, kw.UserID, &kw.ID, 1)
	if err != nil {
		return e.failed(res, fmt.Errorf("quota admission: %w", err))
	}
	if !ok {
		res.Outcome = OutcomeQuotaDenied
		metrics.QuotaDenialsTotal.Inc()
		metrics.CollectionCyclesTotal.WithLabelValues(string(OutcomeQuotaDenied)).Inc()
		slog.Info("collection denied by quota", "keyword", kw.Text, "keyword_id", kw.ID)
		if err := e.publisher.PublishQuotaDenied(ctx, events.QuotaDenied{
			KeywordID: kw.ID,
			UserID:    kw.UserID,
			Keyword:   kw.Text,
			DeniedAt:  e.now().UTC(),
		}); err != nil {
			slog.Warn("publishing quota denial", "error", err)
		}
		return res
	}

	meter := &quotaMeter{admission: e.admission, userID: kw.UserID, keywordID: kw.ID}
	var batch []articles.Candidate
	fetched := make([]bool, len(gaps))
	for i, gap := range gaps {
		sr, err := e.searcher.Search(ctx, kw.Text, &gap, e.cfg.MaxResultsPerGap, meter)
		if err != nil {
			return e.failed(res, fmt.Errorf("searching gap %v: %w", gap, err))
		}
		res.PagesSpent += sr.PagesSpent
		batch = append(batch, sr.Candidates...)
		fetched[i] = !sr.Aborted

		if e.feeds != nil {
			batch = append(batch, e.feeds.Collect(ctx, kw.Text, &gap)...)
		}
	}
	metrics.SearchPagesTotal.Add(float64(res.PagesSpent))

	filter := dedup.NewFilter()
	kept := filter.FilterDuplicates(batch)
	res.Duplicates = filter.Duplicates()
	res.Malformed = filter.Malformed()
	metrics.DuplicatesDroppedTotal.Add(float64(res.Duplicates))

	for i := range kept {
		r := e.analyzer.Analyze(kept[i].Title, kept[i].Snippet)
		kept[i].Sentiment = &r
	}

	if len(kept) > 0 {
		ids, err := e.store.UpsertBatch(ctx, kept)
		if err != nil {
			return e.failed(res, fmt.Errorf("persisting articles: %w", err))
		}
		if err := e.store.LinkKeyword(ctx, kw.ID, ids); err != nil {
			return e.failed(res, fmt.Errorf("linking articles: %w", err))
		}
		res.ArticlesStored = len(ids)
		metrics.ArticlesStoredTotal.Add(float64(len(ids)))
	}

	// The ledger and crawl timestamp are bookkeeping around an already
	// persisted batch; their failures are logged, not fatal. A gap whose
	// search aborted on quota denial or a call failure gets no ledger
	// entry, so it stays open and is retried after the next reset.
	now := e.now().UTC()
	for i, gap := range gaps {
		if !fetched[i] {
			res.GapsSkipped++
			slog.Info("gap not fully fetched, leaving window open",
				"keyword_id", kw.ID, "gap_start", gap.Start, "gap_end", gap.End)
			continue
		}
		entry := history.Entry{
			KeywordID:     kw.ID,
			UserID:        kw.UserID,
			ActualStart:   gap.Start,
			ActualEnd:     gap.End,
			ArticlesCount: countInWindow(kept, gap),
			TriggerType:   req.TriggerType,
		}
		if req.Requested != nil {
			entry.RequestedStart = &req.Requested.Start
			entry.RequestedEnd = &req.Requested.End
		}
		if err := e.planner.Record(ctx, entry); err != nil {
			slog.Warn("recording fetch ledger entry", "keyword_id", kw.ID, "error", err)
		}
	}
	if err := e.keywords.TouchLastCrawled(ctx, kw.ID, now); err != nil {
		slog.Warn("updating last crawl timestamp", "keyword_id", kw.ID, "error", err)
	}

	e.refreshCache(ctx, kw.ID, &res)

	res.Outcome = OutcomeCollected
	res.GapsCovered = len(gaps) - res.GapsSkipped
	metrics.CollectionCyclesTotal.WithLabelValues(string(OutcomeCollected)).Inc()
	slog.Info("collection cycle finished",
		"keyword", kw.Text,
		"gaps", len(gaps),
		"gaps_skipped", res.GapsSkipped,
		"stored", res.ArticlesStored,
		"duplicates", res.Duplicates,
		"pages", res.PagesSpent)

	if err := e.publisher.PublishCycleCompleted(ctx, events.CycleCompleted{
		KeywordID:       kw.ID,
		UserID:          kw.UserID,
		Keyword:         kw.Text,
		TriggerType:     req.TriggerType,
		ArticlesStored:  res.ArticlesStored,
		DuplicatesCount: res.Duplicates,
		PagesSpent:      res.PagesSpent,
		GapsCovered:     res.GapsCovered,
		CompletedAt:     now,
	}); err != nil {
		slog.Warn("publishing cycle completion", "error", err)
	}
	return res
}

// serveCovered handles the no-gap path: the window is already in the
// ledger, so recent articles come from cache or storage.
func (e *Engine) serveCovered(ctx context.Context, kw keywords.Keyword, res CycleResult) CycleResult {
	res.Outcome = OutcomeCovered
	metrics.CollectionCyclesTotal.WithLabelValues(string(OutcomeCovered)).Inc()

	if e.cache != nil {
		if cached, err := e.cache.Recent(ctx, kw.ID, e.cfg.RecentLimit); err == nil && len(cached) > 0 {
			res.Articles = cached
			slog.Debug("serving covered window from cache", "keyword", kw.Text, "articles", len(cached))
			return res
		}
	}

	stored, err := e.store.RecentByKeyword(ctx, kw.ID, e.cfg.RecentLimit)
	if err != nil {
		return e.failed(res, fmt.Errorf("loading recent articles: %w", err))
	}
	res.Articles = stored
	if e.cache != nil && len(stored) > 0 {
		if err := e.cache.Store(ctx, kw.ID, stored, e.cfg.CacheMaxEntries, e.cfg.CacheTTL); err != nil {
			slog.Warn("warming article cache", "keyword_id", kw.ID, "error", err)
		}
	}
	return res
}

func (e *Engine) refreshCache(ctx context.Context, keywordID uuid.UUID, res *CycleResult) {
	if e.cache == nil {
		return
	}
	stored, err := e.store.RecentByKeyword(ctx, keywordID, e.cfg.RecentLimit)
	if err != nil {
		slog.Warn("reloading recent articles for cache", "keyword_id", keywordID, "error", err)
		return
	}
	res.Articles = stored
	if err := e.cache.Invalidate(ctx, keywordID); err != nil {
		slog.Warn("invalidating article cache", "keyword_id", keywordID, "error", err)
	}
	if len(stored) == 0 {
		return
	}
	if err := e.cache.Store(ctx, keywordID, stored, e.cfg.CacheMaxEntries, e.cfg.CacheTTL); err != nil {
		slog.Warn("refreshing article cache", "keyword_id", keywordID, "error", err)
	}
}

func (e *Engine) failed(res CycleResult, err error) CycleResult {
	res.Outcome = OutcomeFailed
	res.Err = err
	metrics.CollectionCyclesTotal.WithLabelValues(string(OutcomeFailed)).Inc()
	slog.Error("collection cycle failed", "keyword_id", res.KeywordID, "error", err)
	return res
}

// countInWindow attributes stored candidates to one covered window by
// publish date; undated candidates are left out of the per-window totals.
func countInWindow(cands []articles.Candidate, w interval.Interval) int {
	n := 0
	for _, c := range cands {
		if c.PublishedAt == nil {
			continue
		}
		if !c.PublishedAt.Before(w.Start) && c.PublishedAt.Before(w.End) {
			n++
		}
	}
	return n
}
