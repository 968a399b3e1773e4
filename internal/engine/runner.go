package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/newsradar-io/newsradar/internal/history"
)

// RunnerConfig bounds one scheduled batch over due keywords.
type RunnerConfig struct {
	// StaleAfter selects keywords whose last crawl is at least this old.
	StaleAfter time.Duration
	// BatchSize caps how many keywords one run picks up.
	BatchSize int
	// Concurrency caps how many cycles run at once.
	Concurrency int
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 30 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// RunDueKeywords collects every keyword whose last crawl is stale, with
// bounded concurrency. One keyword's failure never stops the others; the
// per-keyword results are returned in no particular order.
func (e *Engine) RunDueKeywords(ctx context.Context, cfg RunnerConfig) ([]CycleResult, error) {
	cfg = cfg.withDefaults()

	due, err := e.keywords.ListDue(ctx, cfg.StaleAfter, cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}

	slog.Info("collection batch starting", "keywords", len(due), "concurrency", cfg.Concurrency)

	results := make([]CycleResult, len(due))
	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup

	for i, kw := range due {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[i] = CycleResult{KeywordID: kw.ID, Outcome: OutcomeFailed, Err: ctx.Err()}
				return
			}
			results[i] = e.RunCollectionCycle(ctx, CycleRequest{
				KeywordID:   kw.ID,
				TriggerType: history.TriggerScheduled,
			})
		}()
	}
	wg.Wait()

	var collected, denied, failed int
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCollected, OutcomeCovered:
			collected++
		case OutcomeQuotaDenied:
			denied++
		case OutcomeFailed:
			failed++
		}
	}
	slog.Info("collection batch finished", "ok", collected, "quota_denied", denied, "failed", failed)
	return results, nil
}
