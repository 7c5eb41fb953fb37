package cache

// Stats is a point-in-time snapshot of cache counters.
// Counters are cumulative since construction.
type Stats struct {
	Size          int     `json:"size"`
	MaxSize       int     `json:"max_size"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"` // percentage, 0 when no requests
	Sets          int64   `json:"sets"`
	Evictions     int64   `json:"evictions"`
	Invalidations int64   `json:"invalidations"`
	TagsCount     int     `json:"tags_count"`
}

// Requests returns hits plus misses.
func (s Stats) Requests() int64 {
	return s.Hits + s.Misses
}

// Stats returns a consistent snapshot of the counters.
func (c *TaggedCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:          len(c.entries),
		MaxSize:       c.maxSize,
		Hits:          c.hits,
		Misses:        c.misses,
		Sets:          c.sets,
		Evictions:     c.evictions,
		Invalidations: c.invalidations,
		TagsCount:     len(c.tagIndex),
	}
	if total := s.Requests(); total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}
