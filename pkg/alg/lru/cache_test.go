package lru_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/lru"
)

const (
	testMaxEntries           = 100
	smallMaxEntries          = 3
	testConcurrentGoroutines = 50
	testConcurrentOps        = 100
)

// TestCache_GetPut verifies basic storage and lookup.
func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	c := lru.New[string, int](testMaxEntries)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

// TestCache_Update verifies Put overwrites without growing.
func TestCache_Update(t *testing.T) {
	t.Parallel()

	c := lru.New[string, int](smallMaxEntries)
	c.Put("a", 1)
	c.Put("a", 10)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.Len())
}

// TestCache_EvictsLeastRecentlyUsed verifies eviction order honors Get.
func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := lru.New[int, string](smallMaxEntries)
	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three")

	// Touch 1 so 2 becomes the eviction candidate.
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Put(4, "four")

	_, ok = c.Get(2)
	assert.False(t, ok)

	for _, key := range []int{1, 3, 4} {
		_, ok = c.Get(key)
		assert.True(t, ok, "key %d", key)
	}

	assert.Equal(t, smallMaxEntries, c.Len())
}

// TestCache_SingleEntry verifies the degenerate capacity of one.
func TestCache_SingleEntry(t *testing.T) {
	t.Parallel()

	c := lru.New[int, int](1)
	c.Put(1, 1)
	c.Put(2, 2)

	_, ok := c.Get(1)
	assert.False(t, ok)

	v, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

// TestCache_Stats verifies hit and miss counters.
func TestCache_Stats(t *testing.T) {
	t.Parallel()

	c := lru.New[string, int](testMaxEntries)
	assert.Zero(t, c.Stats().HitRate())

	c.Put("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	stats := c.Stats()
	assert.Equal(t, lru.Stats{Hits: 3, Misses: 1, Entries: 1, MaxEntries: testMaxEntries}, stats)
	assert.InDelta(t, 0.75, stats.HitRate(), 1e-9)
}

// TestCache_NewPanicsWithoutCapacity verifies the capacity precondition.
func TestCache_NewPanicsWithoutCapacity(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { lru.New[int, int](0) })
}

// TestCache_Concurrent verifies the cache under parallel access.
func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := lru.New[int, int](testMaxEntries)

	var wg sync.WaitGroup

	for g := range testConcurrentGoroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range testConcurrentOps {
				key := (g*testConcurrentOps + i) % (2 * testMaxEntries)
				c.Put(key, i)
				c.Get(key)
			}
		}()
	}

	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Entries, testMaxEntries)
	assert.Equal(t, int64(testConcurrentGoroutines*testConcurrentOps), stats.Hits+stats.Misses)
}
