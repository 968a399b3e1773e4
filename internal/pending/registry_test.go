package pending

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryMark(t *testing.T) {
	r := NewRegistry(time.Minute)

	assert.True(t, r.TryMark("a:b:latest"))
	assert.False(t, r.TryMark("a:b:latest"), "second mark for the same key is rejected")
	assert.True(t, r.TryMark("a:c:latest"), "different key is independent")
}

func TestClear(t *testing.T) {
	r := NewRegistry(time.Minute)

	r.TryMark("k")
	assert.True(t, r.IsPending("k"))

	r.Clear("k")
	assert.False(t, r.IsPending("k"))
	assert.True(t, r.TryMark("k"), "cleared key can be marked again")
}

func TestExpiry(t *testing.T) {
	r := NewRegistry(time.Minute)
	current := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	r.TryMark("stale")
	assert.True(t, r.IsPending("stale"))

	// A crashed worker never clears its mark; the TTL does it instead.
	current = current.Add(2 * time.Minute)
	assert.False(t, r.IsPending("stale"))
	assert.True(t, r.TryMark("stale"))
}

func TestExpiryDoesNotTouchFreshEntries(t *testing.T) {
	r := NewRegistry(time.Minute)
	current := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	r.TryMark("old")
	current = current.Add(45 * time.Second)
	r.TryMark("new")
	current = current.Add(30 * time.Second) // "old" is now 75s old, "new" 30s

	assert.False(t, r.IsPending("old"))
	assert.True(t, r.IsPending("new"))
	assert.Equal(t, 1, r.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "u1:k1:2025-07-01", Key("u1", "k1", "2025-07-01"))
	assert.Equal(t, "u1:k1:latest", Key("u1", "k1", ""))
}

func TestConcurrentMarking(t *testing.T) {
	r := NewRegistry(time.Minute)

	var wg sync.WaitGroup
	wins := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- r.TryMark("contested")
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one goroutine may claim the key")
}
