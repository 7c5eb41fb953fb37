package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports TaggedCache statistics to Prometheus at scrape time.
type Collector struct {
	cache *TaggedCache

	size          *prometheus.Desc
	maxSize       *prometheus.Desc
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	hitRatio      *prometheus.Desc
	sets          *prometheus.Desc
	evictions     *prometheus.Desc
	invalidations *prometheus.Desc
	tags          *prometheus.Desc
}

// NewCollector creates a collector for c under the given namespace.
func NewCollector(namespace string, c *TaggedCache) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}

	return &Collector{
		cache:         c,
		size:          desc("entries", "Number of entries currently stored"),
		maxSize:       desc("max_entries", "Configured entry capacity"),
		hits:          desc("hits_total", "Total number of cache hits"),
		misses:        desc("misses_total", "Total number of cache misses"),
		hitRatio:      desc("hit_ratio", "Hits divided by requests, 0 when no requests"),
		sets:          desc("sets_total", "Total number of cache writes"),
		evictions:     desc("evictions_total", "Total number of capacity evictions"),
		invalidations: desc("invalidations_total", "Total number of entries removed by tag invalidation or clear"),
		tags:          desc("tags", "Number of tags in the tag index"),
	}
}

// Describe implements prometheus.Collector.
func (m *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.size
	ch <- m.maxSize
	ch <- m.hits
	ch <- m.misses
	ch <- m.hitRatio
	ch <- m.sets
	ch <- m.evictions
	ch <- m.invalidations
	ch <- m.tags
}

// Collect implements prometheus.Collector.
func (m *Collector) Collect(ch chan<- prometheus.Metric) {
	s := m.cache.Stats()

	ch <- prometheus.MustNewConstMetric(m.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(m.maxSize, prometheus.GaugeValue, float64(s.MaxSize))
	ch <- prometheus.MustNewConstMetric(m.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(m.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(m.hitRatio, prometheus.GaugeValue, s.HitRate/100)
	ch <- prometheus.MustNewConstMetric(m.sets, prometheus.CounterValue, float64(s.Sets))
	ch <- prometheus.MustNewConstMetric(m.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(m.invalidations, prometheus.CounterValue, float64(s.Invalidations))
	ch <- prometheus.MustNewConstMetric(m.tags, prometheus.GaugeValue, float64(s.TagsCount))
}

var _ prometheus.Collector = (*Collector)(nil)
