package cache

import "time"

// Invalidator is the part of the cache that data owners need after a write.
// Implemented by *TaggedCache; the Redis bus applies remote invalidations
// through it.
type Invalidator interface {
	// InvalidateByTag removes every entry carrying tag and returns how many were removed.
	InvalidateByTag(tag string) int

	// InvalidateByTags applies InvalidateByTag for each tag independently.
	InvalidateByTags(tags ...string) int
}

// Store is the read/write surface consumed by Memoize and the services.
type Store interface {
	Invalidator

	// Get returns the live value for key. The boolean is false on a miss.
	Get(key string) (any, bool)

	// Set stores value under key. A ttl <= 0 selects the default TTL.
	Set(key string, value any, ttl time.Duration, tags ...string)

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key string)
}

// Versioned is implemented by stores that count invalidations per tag.
// Memoize uses it so a result computed across an invalidation of one of
// its tags is returned to its callers but never stored.
type Versioned interface {
	// Generation returns a counter that grows whenever one of tags is
	// invalidated or the store is cleared.
	Generation(tags ...string) uint64

	// SetAt stores the entry only if Generation(tags...) still equals gen.
	SetAt(gen uint64, key string, value any, ttl time.Duration, tags ...string) bool
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrInvalidMaxSize is returned by New when MaxSize is not positive.
	ErrInvalidMaxSize CacheError = "cache: max size must be positive"

	// ErrInvalidTTL is returned by New when DefaultTTL is not positive.
	ErrInvalidTTL CacheError = "cache: default ttl must be positive"
)
