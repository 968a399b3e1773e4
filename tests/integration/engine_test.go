//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/engine"
	"github.com/newsradar-io/newsradar/internal/history"
	"github.com/newsradar-io/newsradar/internal/interval"
	"github.com/newsradar-io/newsradar/internal/keywords"
	"github.com/newsradar-io/newsradar/internal/quota"
	"github.com/newsradar-io/newsradar/internal/search"
	"github.com/newsradar-io/newsradar/internal/sentiment"

	"github.com/google/uuid"
)

// stubSearcher returns canned candidates and spends one meter unit per call.
type stubSearcher struct {
	candidates []articles.Candidate
}

func (s *stubSearcher) Search(ctx context.Context, _ string, _ *interval.Interval, _ int, meter search.Meter) (search.Result, error) {
	if meter != nil {
		ok, err := meter.CanSpend(ctx, 1)
		if err != nil || !ok {
			return search.Result{}, err
		}
		if err := meter.RecordSpent(ctx, 1); err != nil {
			return search.Result{}, err
		}
	}
	return search.Result{Candidates: s.candidates, PagesSpent: 1}, nil
}

func TestCollectionCycleEndToEnd(t *testing.T) {
	env := SetupTestEnv(t)
	CleanTables(t, env)
	ctx := context.Background()

	userID := uuid.New()
	kwID := InsertKeyword(t, env, userID, "golang")

	loc := time.FixedZone("KST", 9*3600)
	keywordRepo := keywords.NewRepository(env.Pool)
	articleRepo := articles.NewRepository(env.Pool)
	articleCache := articles.NewCache(env.RedisClient)
	historySvc := history.NewService(history.NewRepository(env.Pool), loc)
	quotaSvc := quota.NewService(quota.NewRepository(env.Pool), keywordRepo, 100, 15)

	published := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	searcher := &stubSearcher{candidates: []articles.Candidate{
		{URL: "https://example.com/a", Title: "Go release", Snippet: "a great new release", PublishedAt: &published},
		{URL: "https://example.com/a", Title: "Go release dup", PublishedAt: &published},
		{URL: "https://example.com/b", Title: "Go adoption", Snippet: "adoption is growing", PublishedAt: &published},
	}}

	eng := engine.New(historySvc, quotaSvc, searcher, nil,
		articleRepo, articleCache, keywordRepo, sentiment.NewAnalyzer(), nil, engine.Config{})

	requested := interval.New(
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	)
	res := eng.RunCollectionCycle(ctx, engine.CycleRequest{
		KeywordID:   kwID,
		Requested:   &requested,
		TriggerType: history.TriggerManual,
	})
	if res.Err != nil {
		t.Fatalf("cycle failed: %v", res.Err)
	}
	if res.Outcome != engine.OutcomeCollected {
		t.Fatalf("expected collected outcome, got %s", res.Outcome)
	}
	if res.ArticlesStored != 2 {
		t.Fatalf("expected 2 stored articles, got %d", res.ArticlesStored)
	}
	if res.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", res.Duplicates)
	}

	// Persisted and linked.
	stored, err := articleRepo.RecentByKeyword(ctx, kwID, 10)
	if err != nil {
		t.Fatalf("loading stored articles: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 linked articles, got %d", len(stored))
	}
	if stored[0].SentimentLabel == "" {
		t.Fatal("expected sentiment to be persisted")
	}

	// Cache warmed.
	cached, err := articleCache.Recent(ctx, kwID, 10)
	if err != nil {
		t.Fatalf("reading cache: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached articles, got %d", len(cached))
	}

	// The same window again is fully covered: no new spend, served from cache.
	res2 := eng.RunCollectionCycle(ctx, engine.CycleRequest{
		KeywordID: kwID,
		Requested: &requested,
	})
	if res2.Outcome != engine.OutcomeCovered {
		t.Fatalf("expected covered outcome on rerun, got %s", res2.Outcome)
	}
	if len(res2.Articles) != 2 {
		t.Fatalf("expected 2 articles served, got %d", len(res2.Articles))
	}

	// Exactly one page was spent across both runs.
	snap, err := quotaSvc.Snapshot(ctx, userID, &kwID)
	if err != nil {
		t.Fatalf("quota snapshot: %v", err)
	}
	if snap.KeywordUsed != 1 {
		t.Fatalf("expected 1 query used, got %d", snap.KeywordUsed)
	}
}
