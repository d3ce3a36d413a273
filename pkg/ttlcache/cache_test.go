package ttlcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestSetThenGet(t *testing.T) {
	c := New[string, int](Options{MaxEntries: 2, TTL: time.Minute})
	c.Set("a", 1)

	got, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, got)
}

func TestGetAfterTTLIsMissAndRemoves(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, string](Options{MaxEntries: 4, TTL: 30 * time.Minute, Now: clock.Now})
	c.Set("k", "v")

	clock.Advance(29 * time.Minute)
	_, ok := c.Get("k")
	require.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestOverflowEvictsOldestInserted(t *testing.T) {
	c := New[string, int](Options{MaxEntries: 2, TTL: time.Hour})
	c.Set("first", 1)
	c.Set("second", 2)

	// reading does not promote: eviction is FIFO, not LRU
	_, _ = c.Get("first")
	c.Set("third", 3)

	_, ok := c.Get("first")
	require.False(t, ok)
	_, ok = c.Get("second")
	require.True(t, ok)
	_, ok = c.Get("third")
	require.True(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestOverwriteKeepsInsertionSlot(t *testing.T) {
	c := New[string, int](Options{MaxEntries: 2, TTL: time.Hour})
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	_, ok := c.Get("a")
	require.False(t, ok)
	got, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, got)
}

func TestEvict(t *testing.T) {
	c := New[int, string](Options{})
	c.Set(1, "one")
	c.Evict(1)
	c.Evict(2)

	_, ok := c.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string, int](Options{MaxEntries: 50, TTL: time.Hour})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("%d-%d", worker, j%60)
				c.Set(key, j)
				_, _ = c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	require.LessOrEqual(t, c.Len(), 50)
}
