package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"lifedash-api/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced by hand so TTL tests never sleep.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, maxSize int, ttl time.Duration) (*cache.TaggedCache, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	c, err := cache.New(cache.Config{MaxSize: maxSize, DefaultTTL: ttl}, cache.WithClock(clock.Now))
	require.NoError(t, err)
	return c, clock
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  cache.Config
		err  error
	}{
		{"zero size", cache.Config{MaxSize: 0, DefaultTTL: time.Second}, cache.ErrInvalidMaxSize},
		{"negative size", cache.Config{MaxSize: -1, DefaultTTL: time.Second}, cache.ErrInvalidMaxSize},
		{"zero ttl", cache.Config{MaxSize: 1, DefaultTTL: 0}, cache.ErrInvalidTTL},
		{"negative ttl", cache.Config{MaxSize: 1, DefaultTTL: -time.Second}, cache.ErrInvalidTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := cache.New(tt.cfg)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, c)
		})
	}
}

func TestGet_MissOnAbsentKey(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)

	v, ok := c.Get("missing")

	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestSetThenGet(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)

	c.Set("key1", "value1", 0)
	v, ok := c.Get("key1")

	require.True(t, ok)
	assert.Equal(t, "value1", v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestSet_StoresNilValue(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)

	c.Set("nil", nil, 0)
	v, ok := c.Get("nil")

	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestGet_UpdatesAccessMetadata(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Hour)
	c.Set("k", 1, 0)

	clock.Advance(time.Minute)
	c.Get("k")
	clock.Advance(time.Minute)
	c.Get("k")

	info, ok := c.Inspect("k")
	require.True(t, ok)
	assert.Equal(t, int64(2), info.AccessCount)
	assert.Equal(t, clock.Now(), info.LastAccessed)
	assert.Equal(t, info.CreatedAt.Add(time.Hour), info.ExpiresAt)
}

func TestInspect_DoesNotCountAsRequest(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)
	c.Set("k", 1, 0)

	_, ok := c.Inspect("k")
	require.True(t, ok)
	_, ok = c.Inspect("absent")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
}

func TestTTLExpiration(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Second)

	c.Set("k", "v", 0)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(1100 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().Size, "expired entry is removed by the failing get")

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(2), c.Stats().Misses)
}

func TestTTLExpiration_BoundaryIsInclusive(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Second)
	c.Set("k", "v", 0)

	clock.Advance(time.Second)

	_, ok := c.Get("k")
	assert.True(t, ok, "entry is live until now passes expires_at")
}

func TestSet_ExplicitTTLOverridesDefault(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Hour)

	c.Set("short", 1, time.Second)
	c.Set("default", 2, -5*time.Second)
	clock.Advance(2 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("default")
	assert.True(t, ok)
}

func TestCleanupExpired(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Second)

	c.Set("a", 1, 0, "events")
	c.Set("b", 2, 0)
	c.Set("c", 3, time.Hour, "events")
	clock.Advance(2 * time.Second)

	removed := c.CleanupExpired()

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"c"}, c.Keys())
	assert.Equal(t, []string{"c"}, c.TagKeys("events"))
	assert.Zero(t, c.CleanupExpired())
}

func TestEviction_LeastRecentlyTouched(t *testing.T) {
	c, clock := newTestCache(t, 2, time.Hour)

	c.Set("x", 1, 0)
	clock.Advance(time.Millisecond)
	c.Set("y", 2, 0)
	clock.Advance(time.Millisecond)
	c.Get("x")
	clock.Advance(time.Millisecond)
	c.Set("z", 3, 0)

	_, ok := c.Get("y")
	assert.False(t, ok, "y was least recently touched")

	x, ok := c.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, x)
	z, ok := c.Get("z")
	require.True(t, ok)
	assert.Equal(t, 3, z)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestEviction_TiesBrokenByTouchOrder(t *testing.T) {
	// clock never advances, so every last_accessed is equal
	c, _ := newTestCache(t, 3, time.Hour)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)
	c.Get("a")
	c.Set("d", 4, 0)

	assert.Equal(t, []string{"c", "a", "d"}, c.Keys())
}

func TestEviction_NeverExceedsMaxSize(t *testing.T) {
	c, clock := newTestCache(t, 5, time.Hour)

	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, 0, fmt.Sprintf("t%d", i%3))
		clock.Advance(time.Millisecond)
		assert.LessOrEqual(t, c.Len(), 5)
	}

	assert.Equal(t, []string{"k45", "k46", "k47", "k48", "k49"}, c.Keys())
	assert.Equal(t, int64(45), c.Stats().Evictions)
	assert.Equal(t, []string{"k45", "k48"}, c.TagKeys("t0"))
}

func TestSet_ReplaceDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Hour)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("a", 10, 0)

	assert.Equal(t, 2, c.Len())
	assert.Zero(t, c.Stats().Evictions)
	v, _ := c.Get("a")
	assert.Equal(t, 10, v)
}

func TestSet_ReplaceSwapsTagMemberships(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	c.Set("k", 1, 0, "old", "shared")
	c.Set("k", 2, 0, "new", "shared")

	assert.Empty(t, c.TagKeys("old"))
	assert.Equal(t, []string{"k"}, c.TagKeys("new"))
	assert.Equal(t, []string{"k"}, c.TagKeys("shared"))
	assert.Equal(t, 2, c.Stats().TagsCount)

	assert.Zero(t, c.InvalidateByTag("old"))
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)
	c.Set("k", 1, 0, "events")

	c.Delete("k")
	c.Delete("k")
	c.Delete("never-set")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().TagsCount)
}

func TestInvalidateByTag(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	c.Set("e1", 1, 0, "events")
	c.Set("e2", 2, 0, "events")
	c.Set("x1", 3, 0, "exams")

	removed := c.InvalidateByTag("events")

	assert.Equal(t, 2, removed)
	_, ok := c.Get("e1")
	assert.False(t, ok)
	_, ok = c.Get("e2")
	assert.False(t, ok)
	v, ok := c.Get("x1")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Invalidations)
	assert.Equal(t, 1, stats.TagsCount)
	assert.Empty(t, c.TagKeys("events"))
}

func TestInvalidateByTag_UnknownTagIsNoop(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)
	c.Set("k", 1, 0)

	assert.Zero(t, c.InvalidateByTag("nope"))
	assert.Equal(t, 1, c.Len())
	assert.Zero(t, c.Stats().Invalidations)
}

func TestInvalidateByTag_MultiTagRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)
	c.Set("k", "v", 0, "a", "b")

	assert.Equal(t, 1, c.InvalidateByTag("a"))
	_, ok := c.Get("k")
	assert.False(t, ok)

	assert.Zero(t, c.InvalidateByTag("b"))
	assert.Zero(t, c.Stats().TagsCount)
}

func TestGeneration_GrowsOnInvalidateAndClear(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	g0 := c.Generation("a")
	assert.Equal(t, g0, c.Generation("a"))

	c.InvalidateByTag("b")
	assert.Equal(t, g0, c.Generation("a"), "other tags do not move it")

	c.InvalidateByTag("a")
	g1 := c.Generation("a")
	assert.Greater(t, g1, g0, "bumped even with nothing stored")

	c.Clear()
	assert.Greater(t, c.Generation("a"), g1)
	assert.Greater(t, c.Generation(), uint64(0))
}

func TestSetAt_RefusesStaleGeneration(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	gen := c.Generation("a", "b")
	c.InvalidateByTag("b")

	assert.False(t, c.SetAt(gen, "k", 1, 0, "a", "b"))
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Stats().Sets)

	assert.True(t, c.SetAt(c.Generation("a", "b"), "k", 1, 0, "a", "b"))
	assert.Equal(t, []string{"k"}, c.TagKeys("a"))
}

func TestInvalidateByTags(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)
	c.Set("both", 1, 0, "a", "b")
	c.Set("only-b", 2, 0, "b")
	c.Set("other", 3, 0, "c")

	removed := c.InvalidateByTags("a", "b")

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"other"}, c.Keys())
	assert.Equal(t, int64(2), c.Stats().Invalidations)
}

func TestClear_CountsRemovedEntries(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)
	c.Set("a", 1, 0, "t")
	c.Set("b", 2, 0)
	c.Get("a")

	removed := c.Clear()

	assert.Equal(t, 2, removed)
	stats := c.Stats()
	assert.Zero(t, stats.Size)
	assert.Zero(t, stats.TagsCount)
	assert.Equal(t, int64(2), stats.Invalidations)
	assert.Equal(t, int64(1), stats.Hits, "clear keeps request counters")
	assert.Equal(t, int64(2), stats.Sets)

	c.Set("c", 3, 0)
	v, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestStats_HitRate(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)
	assert.Zero(t, c.Stats().HitRate)

	c.Set("k", 1, 0)
	c.Get("k")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 75.0, stats.HitRate, 1e-9)
	assert.Equal(t, 10, stats.MaxSize)
}

func TestConcurrentAccess(t *testing.T) {
	c, err := cache.New(cache.Config{MaxSize: 64, DefaultTTL: time.Minute})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%100)
				tag := fmt.Sprintf("t%d", i%4)
				c.Set(key, i, 0, tag)
				c.Get(key)
				if i%50 == 0 {
					c.InvalidateByTag(tag)
				}
				if i%97 == 0 {
					c.CleanupExpired()
				}
			}
		}(g)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Size, 64)
	assert.Equal(t, int64(8*500), stats.Sets)

	// every indexed key must exist and carry the tag
	for _, tag := range []string{"t0", "t1", "t2", "t3"} {
		for _, key := range c.TagKeys(tag) {
			info, ok := c.Inspect(key)
			require.True(t, ok, "tag %s references missing key %s", tag, key)
			assert.Contains(t, info.Tags, tag)
		}
	}
}
