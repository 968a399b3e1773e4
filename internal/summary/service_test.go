package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/pending"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	err   error
}

func (f *fakeGenerator) Summarize(_ context.Context, keyword string, items []articles.Article) (Generated, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return Generated{}, f.err
	}
	return Generated{Text: "digest of " + keyword, TotalTokens: 120, InputTokens: 100, OutputTokens: 20}, nil
}

type fakeBudget struct {
	allow    bool
	total    int
	recorded int
}

func (f *fakeBudget) CanMakeRequest(context.Context) bool { return f.allow }

func (f *fakeBudget) RecordUsage(_ context.Context, total, _, _ int) error {
	f.recorded++
	f.total += total
	return nil
}

func testRedis(t *testing.T) redis.Cmdable {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func someArticles() []articles.Article {
	return []articles.Article{
		{Title: "Go 1.25 released", Source: "example.com", Snippet: "A new release."},
		{Title: "Go adoption grows", Source: "wire.example"},
	}
}

func TestGenerate_RecordsUsage(t *testing.T) {
	gen := &fakeGenerator{}
	budget := &fakeBudget{allow: true}
	svc := NewService(gen, budget, pending.NewRegistry(pending.DefaultTTL), testRedis(t))

	sum, err := svc.Generate(context.Background(), uuid.New(), uuid.New(), "", "golang", someArticles())
	require.NoError(t, err)

	assert.Equal(t, "digest of golang", sum.Text)
	assert.Equal(t, TargetLatest, sum.TargetDate)
	assert.Equal(t, 2, sum.Articles)
	assert.Equal(t, 120, sum.TokensSpent)
	assert.Equal(t, 1, budget.recorded, "spend is booked after a successful call")
	assert.Equal(t, 120, budget.total)
}

func TestGenerate_BudgetDenied(t *testing.T) {
	gen := &fakeGenerator{}
	budget := &fakeBudget{allow: false}
	svc := NewService(gen, budget, pending.NewRegistry(pending.DefaultTTL), testRedis(t))

	_, err := svc.Generate(context.Background(), uuid.New(), uuid.New(), "latest", "golang", someArticles())
	require.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Zero(t, gen.calls, "no model call when over budget")
	assert.Zero(t, budget.recorded)
}

func TestGenerate_NoArticles(t *testing.T) {
	svc := NewService(&fakeGenerator{}, &fakeBudget{allow: true}, pending.NewRegistry(pending.DefaultTTL), testRedis(t))

	_, err := svc.Generate(context.Background(), uuid.New(), uuid.New(), "latest", "golang", nil)
	require.ErrorIs(t, err, ErrNoArticles)
}

func TestGenerate_GeneratorFailureClearsPending(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	budget := &fakeBudget{allow: true}
	reg := pending.NewRegistry(pending.DefaultTTL)
	svc := NewService(gen, budget, reg, testRedis(t))

	userID, keywordID := uuid.New(), uuid.New()
	_, err := svc.Generate(context.Background(), userID, keywordID, "latest", "golang", someArticles())
	require.Error(t, err)
	assert.Zero(t, budget.recorded, "failed call books nothing")

	gen.err = nil
	_, err = svc.Generate(context.Background(), userID, keywordID, "latest", "golang", someArticles())
	require.NoError(t, err, "failure must not leave the request marked pending")
}

func TestGenerate_ConcurrentDuplicatesCollapse(t *testing.T) {
	gen := &fakeGenerator{delay: 50 * time.Millisecond}
	budget := &fakeBudget{allow: true}
	svc := NewService(gen, budget, pending.NewRegistry(pending.DefaultTTL), testRedis(t))

	userID, keywordID := uuid.New(), uuid.New()
	var wg sync.WaitGroup
	var okCount, pendingCount int
	var mu sync.Mutex

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Generate(context.Background(), userID, keywordID, "2025-06-02", "golang", someArticles())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, ErrAlreadyPending):
				pendingCount++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	assert.Equal(t, 7, pendingCount)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerate_CachedResultSkipsModel(t *testing.T) {
	gen := &fakeGenerator{}
	budget := &fakeBudget{allow: true}
	svc := NewService(gen, budget, pending.NewRegistry(pending.DefaultTTL), testRedis(t))

	userID, keywordID := uuid.New(), uuid.New()
	first, err := svc.Generate(context.Background(), userID, keywordID, "2025-06-02", "golang", someArticles())
	require.NoError(t, err)

	second, err := svc.Generate(context.Background(), userID, keywordID, "2025-06-02", "golang", someArticles())
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, gen.calls, "second request is served from cache")
	assert.Equal(t, 1, budget.recorded)
}

func TestBuildPrompt_Truncation(t *testing.T) {
	long := make([]articles.Article, 200)
	for i := range long {
		long[i] = articles.Article{Title: "A very long article title about golang performance tuning", Source: "example.com", Snippet: "Lots of words repeated to inflate the prompt size well past any sane bound."}
	}
	prompt := buildPrompt("golang", long)
	assert.LessOrEqual(t, len([]rune(prompt)), maxPromptChars+len("\n[TRUNCATED]"))
	assert.Contains(t, prompt, "[TRUNCATED]")
}
