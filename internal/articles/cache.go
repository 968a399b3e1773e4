package articles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache keeps the latest collected articles per keyword in Redis lists so
// a cache-hit cycle can answer without touching PostgreSQL.
type Cache struct {
	client redis.Cmdable
}

// NewCache creates a new article Cache.
func NewCache(client redis.Cmdable) *Cache {
	return &Cache{client: client}
}

func cacheKey(keywordID uuid.UUID) string {
	return "articles:recent:" + keywordID.String()
}

// Recent returns up to limit cached articles for the keyword, newest first.
func (c *Cache) Recent(ctx context.Context, keywordID uuid.UUID, limit int) ([]Article, error) {
	vals, err := c.client.LRange(ctx, cacheKey(keywordID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", cacheKey(keywordID), err)
	}

	out := make([]Article, 0, len(vals))
	for _, v := range vals {
		var a Article
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			continue // skip malformed entries
		}
		out = append(out, a)
	}
	return out, nil
}

// Store prepends freshly collected articles, trims the list to maxEntries,
// and refreshes the TTL.
func (c *Cache) Store(ctx context.Context, keywordID uuid.UUID, arts []Article, maxEntries int, ttl time.Duration) error {
	if len(arts) == 0 {
		return nil
	}
	key := cacheKey(keywordID)

	pipe := c.client.Pipeline()
	for _, a := range arts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshaling article for cache: %w", err)
		}
		pipe.LPush(ctx, key, string(data))
	}
	pipe.LTrim(ctx, key, 0, int64(maxEntries-1))
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Invalidate drops the cached list for a keyword.
func (c *Cache) Invalidate(ctx context.Context, keywordID uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(keywordID)).Err()
}
