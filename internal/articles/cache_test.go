package articles

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	return NewCache(redis.NewClient(&redis.Options{Addr: s.Addr()})), s
}

func TestCache_StoreAndRecent(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()
	kw := uuid.New()

	err := cache.Store(ctx, kw, []Article{
		{ID: uuid.New(), URL: "https://example.com/a", Title: "first"},
		{ID: uuid.New(), URL: "https://example.com/b", Title: "second"},
	}, 20, time.Hour)
	require.NoError(t, err)

	got, err := cache.Recent(ctx, kw, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Title, "latest stored article comes first")
}

func TestCache_TrimsToMaxEntries(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()
	kw := uuid.New()

	for i := 0; i < 5; i++ {
		err := cache.Store(ctx, kw, []Article{{ID: uuid.New(), Title: "t"}}, 3, time.Hour)
		require.NoError(t, err)
	}

	got, err := cache.Recent(ctx, kw, 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestCache_EmptyKeyword(t *testing.T) {
	cache, _ := setupCache(t)

	got, err := cache.Recent(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_EntriesExpire(t *testing.T) {
	cache, s := setupCache(t)
	ctx := context.Background()
	kw := uuid.New()

	require.NoError(t, cache.Store(ctx, kw, []Article{{ID: uuid.New()}}, 20, time.Minute))

	s.FastForward(2 * time.Minute)

	got, err := cache.Recent(ctx, kw, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()
	kw := uuid.New()

	require.NoError(t, cache.Store(ctx, kw, []Article{{ID: uuid.New()}}, 20, time.Hour))
	require.NoError(t, cache.Invalidate(ctx, kw))

	got, err := cache.Recent(ctx, kw, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
