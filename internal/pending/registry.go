// Package pending tracks in-flight generation work so two callers never
// start the same expensive job concurrently. The registry is process-local
// on purpose: it only guards against duplicate work inside one process,
// while cross-process idempotence comes from the storage layer.
package pending

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL bounds how long a mark can block duplicates. A crashed worker
// that never clears its mark self-expires after this.
const DefaultTTL = 10 * time.Minute

// Registry is a TTL-indexed concurrent set of in-flight work keys.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry creates a Registry with the given TTL; ttl <= 0 uses
// DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key builds a registry key for one generation unit of work.
func Key(userID, keywordID, targetDate string) string {
	if targetDate == "" {
		targetDate = "latest"
	}
	return strings.Join([]string{userID, keywordID, targetDate}, ":")
}

// TryMark marks key as pending and returns true, or returns false if a
// live mark already exists.
func (r *Registry) TryMark(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpired()
	if _, exists := r.entries[key]; exists {
		return false
	}
	r.entries[key] = r.now()
	return true
}

// Clear removes the mark for key, if any.
func (r *Registry) Clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// IsPending reports whether key has a live mark.
func (r *Registry) IsPending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpired()
	_, exists := r.entries[key]
	return exists
}

// Len returns the number of live marks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpired()
	return len(r.entries)
}

// purgeExpired must be called with the lock held.
func (r *Registry) purgeExpired() {
	cutoff := r.now().Add(-r.ttl)
	for key, marked := range r.entries {
		if marked.Before(cutoff) {
			delete(r.entries, key)
		}
	}
}
