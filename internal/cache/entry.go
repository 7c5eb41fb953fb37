package cache

import (
	"container/list"
	"sort"
	"time"
)

// entry represents one cached computation result.
// tags is fixed at creation; replacing a key creates a new entry.
type entry struct {
	key          string
	value        any
	createdAt    time.Time
	expiresAt    time.Time
	tags         map[string]struct{}
	accessCount  int64
	lastAccessed time.Time

	// position in the recency list, front = least recently touched
	elem *list.Element
}

func newEntry(key string, value any, now time.Time, ttl time.Duration, tags []string) *entry {
	e := &entry{
		key:          key,
		value:        value,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
	if len(tags) > 0 {
		e.tags = make(map[string]struct{}, len(tags))
		for _, tag := range tags {
			e.tags[tag] = struct{}{}
		}
	}
	return e
}

// isExpired reports whether now is past the entry's expiry.
func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// touch records a successful read.
func (e *entry) touch(now time.Time) {
	e.accessCount++
	e.lastAccessed = now
}

func (e *entry) tagList() []string {
	tags := make([]string, 0, len(e.tags))
	for tag := range e.tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// EntryInfo is a read-only snapshot of an entry's metadata.
type EntryInfo struct {
	Key          string    `json:"key"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Tags         []string  `json:"tags"`
	AccessCount  int64     `json:"access_count"`
	LastAccessed time.Time `json:"last_accessed"`
	Expired      bool      `json:"expired"`
}

func (e *entry) info(now time.Time) EntryInfo {
	return EntryInfo{
		Key:          e.key,
		CreatedAt:    e.createdAt,
		ExpiresAt:    e.expiresAt,
		Tags:         e.tagList(),
		AccessCount:  e.accessCount,
		LastAccessed: e.lastAccessed,
		Expired:      e.isExpired(now),
	}
}
