package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a per-IP sliding window using a Redis sorted set
// per client. Each request is a member scored by its timestamp; the
// window is trimmed before counting.
type RateLimiter struct {
	client redis.Cmdable
	scope  string
	limit  int
	window time.Duration
}

// NewRateLimiter allows maxReqs requests per windowSec seconds. The
// scope keys limits separately per protected surface, e.g. "collect"
// for manual collection triggers.
func NewRateLimiter(client redis.Cmdable, scope string, maxReqs, windowSec int) *RateLimiter {
	return &RateLimiter{
		client: client,
		scope:  scope,
		limit:  maxReqs,
		window: time.Duration(windowSec) * time.Second,
	}
}

// Middleware wraps next with the rate limit. Redis failures fail open
// so a cache outage does not take the API down with it.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed, err := rl.allow(r.Context(), "ratelimit:"+rl.scope+":"+ip)
		if err != nil {
			slog.Warn("rate limiter unavailable, failing open", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
			http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-rl.window).UnixMilli(), 10)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, rl.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() < int64(rl.limit), nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
