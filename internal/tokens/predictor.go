package tokens

import (
	"context"
	"log/slog"
	"time"
)

// UsageStore is the durable daily token counter the predictor reads and
// writes.
type UsageStore interface {
	IncrementUsage(ctx context.Context, usageDate time.Time, total, input, output int) error
	UsageForDate(ctx context.Context, usageDate time.Time) (UsageDay, error)
}

// Predictor extrapolates today's end-of-day generation-token usage from
// usage-so-far and gates summarization on the configured daily cap.
//
// The model deliberately assumes the rest of the day mirrors the average
// so far; bursty traffic is mispredicted in either direction. That is
// acceptable because the failure mode is "summarization paused", never
// data loss.
type Predictor struct {
	store      UsageStore
	dailyLimit int
	loc        *time.Location
	now        func() time.Time
}

// NewPredictor creates a Predictor. Day boundaries are evaluated in loc,
// the product's local timezone.
func NewPredictor(store UsageStore, dailyLimit int, loc *time.Location) *Predictor {
	if loc == nil {
		loc = time.UTC
	}
	return &Predictor{store: store, dailyLimit: dailyLimit, loc: loc, now: time.Now}
}

// RecordUsage attributes spent tokens to today.
func (p *Predictor) RecordUsage(ctx context.Context, total, input, output int) error {
	return p.store.IncrementUsage(ctx, p.today(), total, input, output)
}

// DailyUsage returns today's total usage so far.
func (p *Predictor) DailyUsage(ctx context.Context) (int, error) {
	usage, err := p.store.UsageForDate(ctx, p.today())
	if err != nil {
		return 0, err
	}
	return usage.TotalTokens, nil
}

// PredictDailyUsage extrapolates the end-of-day total linearly:
// current + (current / hours elapsed) * hours remaining.
func (p *Predictor) PredictDailyUsage(ctx context.Context) (int, error) {
	current, err := p.DailyUsage(ctx)
	if err != nil {
		return 0, err
	}

	now := p.now().In(p.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
	elapsed := now.Sub(midnight).Hours()
	if elapsed < 1 {
		elapsed = 1
	}
	remaining := midnight.AddDate(0, 0, 1).Sub(now).Hours()
	if remaining < 0 {
		remaining = 0
	}

	return current + int(float64(current)/elapsed*remaining), nil
}

// IsLimitExceeded reports whether the predicted end-of-day usage reaches
// the daily cap. On any failure to read usage state it fails open: a
// bookkeeping outage must never silently disable summarization.
func (p *Predictor) IsLimitExceeded(ctx context.Context) bool {
	predicted, err := p.PredictDailyUsage(ctx)
	if err != nil {
		slog.Warn("token predictor: usage read failed, failing open", "error", err)
		return false
	}
	return predicted >= p.dailyLimit
}

// CanMakeRequest is the admission check for a generation call.
func (p *Predictor) CanMakeRequest(ctx context.Context) bool {
	return !p.IsLimitExceeded(ctx)
}

// UsageStatus assembles the API view of today's budget. Read failures
// degrade to a permissive zero-usage status rather than an error.
func (p *Predictor) UsageStatus(ctx context.Context) Status {
	now := p.now().In(p.loc)
	resetAt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc).AddDate(0, 0, 1)

	current, err := p.DailyUsage(ctx)
	if err != nil {
		slog.Warn("token predictor: status read failed, reporting defaults", "error", err)
		return Status{DailyLimit: p.dailyLimit, CanMakeRequest: true, ResetAt: resetAt}
	}

	predicted, err := p.PredictDailyUsage(ctx)
	if err != nil {
		predicted = current
	}

	pct := 0.0
	if p.dailyLimit > 0 {
		pct = float64(current) / float64(p.dailyLimit)
		if pct > 1 {
			pct = 1
		}
	}

	exceeded := predicted >= p.dailyLimit

	return Status{
		TodayUsage:      current,
		DailyLimit:      p.dailyLimit,
		UsagePercent:    pct,
		PredictedDaily:  predicted,
		IsLimitExceeded: exceeded,
		CanMakeRequest:  !exceeded,
		ResetAt:         resetAt,
	}
}

func (p *Predictor) today() time.Time {
	now := p.now().In(p.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
