package cache

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config is fixed at construction.
type Config struct {
	// MaxSize bounds the number of live entries.
	MaxSize int
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL time.Duration
}

// Option customizes a TaggedCache.
type Option func(*TaggedCache)

// WithClock replaces time.Now. Tests use it to drive expiry deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *TaggedCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for invalidation and eviction events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *TaggedCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// TaggedCache is a bounded, thread-safe in-memory store with per-entry TTL,
// least-recently-touched eviction and group invalidation by tag.
//
// Values are stored by reference. Callers must treat cached values as
// immutable; the cache never copies them.
type TaggedCache struct {
	mu sync.Mutex

	maxSize    int
	defaultTTL time.Duration

	entries  map[string]*entry
	recency  *list.List                     // of *entry, front = least recently touched
	tagIndex map[string]map[string]struct{} // tag -> keys

	epoch  uint64            // bumped by Clear
	tagGen map[string]uint64 // bumped by every invalidation of the tag

	hits          int64
	misses        int64
	sets          int64
	evictions     int64
	invalidations int64

	now    func() time.Time
	logger *zap.Logger
}

// New creates a TaggedCache. It fails fast on a non-positive MaxSize or DefaultTTL.
func New(cfg Config, opts ...Option) (*TaggedCache, error) {
	if cfg.MaxSize <= 0 {
		return nil, ErrInvalidMaxSize
	}
	if cfg.DefaultTTL <= 0 {
		return nil, ErrInvalidTTL
	}

	c := &TaggedCache{
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		entries:    make(map[string]*entry),
		recency:    list.New(),
		tagIndex:   make(map[string]map[string]struct{}),
		tagGen:     make(map[string]uint64),
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get retrieves the live value for key.
// An expired entry is removed as a side effect and counts as a miss.
func (c *TaggedCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	now := c.now()
	if e.isExpired(now) {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}

	e.touch(now)
	c.recency.MoveToBack(e.elem)
	c.hits++
	return e.value, true
}

// Set inserts or replaces the entry for key.
// A ttl <= 0 selects the default TTL. Replacing a key drops its old tag
// memberships before the new ones are indexed.
func (c *TaggedCache) Set(key string, value any, ttl time.Duration, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(key, value, ttl, tags)
}

// Generation returns a counter that grows whenever one of tags is
// invalidated or the cache is cleared.
func (c *TaggedCache) Generation(tags ...string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generationLocked(tags)
}

// SetAt stores the entry only if Generation(tags...) still equals gen.
// It reports whether the value was stored.
func (c *TaggedCache) SetAt(gen uint64, key string, value any, ttl time.Duration, tags ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generationLocked(tags) != gen {
		return false
	}
	c.setLocked(key, value, ttl, tags)
	return true
}

func (c *TaggedCache) generationLocked(tags []string) uint64 {
	gen := c.epoch
	for _, tag := range tags {
		gen += c.tagGen[tag]
	}
	return gen
}

func (c *TaggedCache) setLocked(key string, value any, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if old, exists := c.entries[key]; exists {
		c.removeLocked(old)
	} else if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	e := newEntry(key, value, c.now(), ttl, tags)
	e.elem = c.recency.PushBack(e)
	c.entries[key] = e
	for tag := range e.tags {
		keys, ok := c.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagIndex[tag] = keys
		}
		keys[key] = struct{}{}
	}

	c.sets++
}

// Delete removes key if present.
func (c *TaggedCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[key]; exists {
		c.removeLocked(e)
	}
}

// InvalidateByTag removes every entry indexed under tag and returns the count.
func (c *TaggedCache) InvalidateByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.invalidateTagLocked(tag)
}

// InvalidateByTags invalidates each tag in turn. A key carrying several of
// the tags is removed by the first pass and ignored by the rest.
func (c *TaggedCache) InvalidateByTags(tags ...string) int {
	removed := 0
	for _, tag := range tags {
		removed += c.InvalidateByTag(tag)
	}
	return removed
}

// Clear removes all entries and tag state. The number of entries removed is
// added to the invalidations counter; other counters are kept.
func (c *TaggedCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]*entry)
	c.recency.Init()
	c.tagIndex = make(map[string]map[string]struct{})
	c.epoch++
	c.invalidations += int64(removed)

	c.logger.Debug("cache cleared", zap.Int("removed", removed))
	return removed
}

// CleanupExpired removes every expired entry and returns how many were removed.
func (c *TaggedCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.recency.Front(); elem != nil; {
		next := elem.Next()
		if e := elem.Value.(*entry); e.isExpired(now) {
			c.removeLocked(e)
			removed++
		}
		elem = next
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until
// they are reclaimed.
func (c *TaggedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Inspect returns entry metadata without touching recency or statistics.
func (c *TaggedCache) Inspect(key string) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return EntryInfo{}, false
	}
	return e.info(c.now()), true
}

// Keys returns the stored keys from least to most recently touched.
func (c *TaggedCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for elem := c.recency.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}
	return keys
}

// TagKeys returns the keys currently indexed under tag, sorted.
func (c *TaggedCache) TagKeys(tag string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	members := c.tagIndex[tag]
	keys := make([]string, 0, len(members))
	for key := range members {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (c *TaggedCache) invalidateTagLocked(tag string) int {
	// bumped even when nothing is stored yet: a computation may be in flight
	c.tagGen[tag]++

	members, ok := c.tagIndex[tag]
	if !ok {
		return 0
	}

	// snapshot: removeLocked mutates the index while we walk it
	keys := make([]string, 0, len(members))
	for key := range members {
		keys = append(keys, key)
	}
	for _, key := range keys {
		if e, exists := c.entries[key]; exists {
			c.removeLocked(e)
		}
	}

	c.invalidations += int64(len(keys))
	c.logger.Debug("cache tag invalidated",
		zap.String("tag", tag),
		zap.Int("removed", len(keys)),
	)
	return len(keys)
}

// evictLocked removes the least recently touched entry.
func (c *TaggedCache) evictLocked() {
	front := c.recency.Front()
	if front == nil {
		return
	}

	e := front.Value.(*entry)
	c.removeLocked(e)
	c.evictions++
	c.logger.Debug("cache entry evicted", zap.String("key", e.key))
}

// removeLocked drops e from the store, the recency list and the tag index.
// Tags left without members are removed from the index.
func (c *TaggedCache) removeLocked(e *entry) {
	for tag := range e.tags {
		if keys, ok := c.tagIndex[tag]; ok {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(c.tagIndex, tag)
			}
		}
	}
	c.recency.Remove(e.elem)
	delete(c.entries, e.key)
}

var (
	_ Store     = (*TaggedCache)(nil)
	_ Versioned = (*TaggedCache)(nil)
)
