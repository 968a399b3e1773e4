package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	usage   map[string]*UsageDay
	readErr error
}

func newTokenStore() *fakeStore {
	return &fakeStore{usage: make(map[string]*UsageDay)}
}

func (f *fakeStore) IncrementUsage(_ context.Context, usageDate time.Time, total, input, output int) error {
	key := usageDate.Format("2006-01-02")
	day, ok := f.usage[key]
	if !ok {
		day = &UsageDay{Date: usageDate}
		f.usage[key] = day
	}
	day.TotalTokens += total
	day.InputTokens += input
	day.OutputTokens += output
	return nil
}

func (f *fakeStore) UsageForDate(_ context.Context, usageDate time.Time) (UsageDay, error) {
	if f.readErr != nil {
		return UsageDay{}, f.readErr
	}
	if day, ok := f.usage[usageDate.Format("2006-01-02")]; ok {
		return *day, nil
	}
	return UsageDay{Date: usageDate}, nil
}

func predictorAt(store *fakeStore, limit int, hour int) *Predictor {
	p := NewPredictor(store, limit, time.UTC)
	p.now = func() time.Time {
		return time.Date(2025, 5, 20, hour, 0, 0, 0, time.UTC)
	}
	return p
}

// 600k tokens by hour 12 of 24 extrapolates to 1.2M, which trips a 1M cap.
func TestPredict_HalfDayExtrapolation(t *testing.T) {
	store := newTokenStore()
	p := predictorAt(store, 1_000_000, 12)
	ctx := context.Background()

	require.NoError(t, p.RecordUsage(ctx, 600_000, 400_000, 200_000))

	predicted, err := p.PredictDailyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1_200_000, predicted)
	assert.True(t, p.IsLimitExceeded(ctx))
	assert.False(t, p.CanMakeRequest(ctx))
}

func TestPredict_UnderBudget(t *testing.T) {
	store := newTokenStore()
	p := predictorAt(store, 1_000_000, 12)
	ctx := context.Background()

	require.NoError(t, p.RecordUsage(ctx, 100_000, 0, 0))

	predicted, err := p.PredictDailyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200_000, predicted)
	assert.False(t, p.IsLimitExceeded(ctx))
}

func TestPredict_ZeroUsage(t *testing.T) {
	p := predictorAt(newTokenStore(), 1_000_000, 6)

	predicted, err := p.PredictDailyUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, predicted)
}

// Early-morning usage divides by at least one hour so a burst in the first
// minutes does not explode the forecast to infinity.
func TestPredict_FirstHourClamped(t *testing.T) {
	store := newTokenStore()
	p := predictorAt(store, 1_000_000, 0)
	ctx := context.Background()

	require.NoError(t, p.RecordUsage(ctx, 10_000, 0, 0))

	predicted, err := p.PredictDailyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10_000+10_000*24, predicted)
}

func TestIsLimitExceeded_FailsOpenOnStorageError(t *testing.T) {
	store := newTokenStore()
	store.readErr = errors.New("connection refused")
	p := predictorAt(store, 1_000_000, 12)

	assert.False(t, p.IsLimitExceeded(context.Background()),
		"bookkeeping outage must not pause summarization")
	assert.True(t, p.CanMakeRequest(context.Background()))
}

func TestUsageStatus(t *testing.T) {
	store := newTokenStore()
	p := predictorAt(store, 1_000_000, 12)
	ctx := context.Background()

	require.NoError(t, p.RecordUsage(ctx, 250_000, 150_000, 100_000))

	st := p.UsageStatus(ctx)
	assert.Equal(t, 250_000, st.TodayUsage)
	assert.Equal(t, 500_000, st.PredictedDaily)
	assert.InDelta(t, 0.25, st.UsagePercent, 1e-9)
	assert.False(t, st.IsLimitExceeded)
	assert.True(t, st.CanMakeRequest)
	assert.Equal(t, time.Date(2025, 5, 21, 0, 0, 0, 0, time.UTC), st.ResetAt)
}

func TestUsageStatus_DefaultsOnStorageError(t *testing.T) {
	store := newTokenStore()
	store.readErr = errors.New("boom")
	p := predictorAt(store, 1_000_000, 12)

	st := p.UsageStatus(context.Background())
	assert.Equal(t, 0, st.TodayUsage)
	assert.True(t, st.CanMakeRequest)
	assert.False(t, st.IsLimitExceeded)
}

func TestRecordUsageAccumulates(t *testing.T) {
	store := newTokenStore()
	p := predictorAt(store, 1_000_000, 12)
	ctx := context.Background()

	require.NoError(t, p.RecordUsage(ctx, 100, 60, 40))
	require.NoError(t, p.RecordUsage(ctx, 50, 30, 20))

	usage, err := p.DailyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150, usage)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 5, EstimateTokens("twenty characters 20"))
}
