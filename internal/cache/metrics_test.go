package cache_test

import (
	"testing"
	"time"

	"lifedash-api/internal/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExportsStats(t *testing.T) {
	c, _ := newTestCache(t, 5, time.Hour)
	c.Set("a", 1, 0, "events")
	c.Get("a")
	c.Get("missing")

	collector := cache.NewCollector("lifedash", c)
	assert.Equal(t, 9, testutil.CollectAndCount(collector))

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))

	families, err := registry.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}

	assert.Equal(t, 1.0, values["lifedash_cache_entries"])
	assert.Equal(t, 5.0, values["lifedash_cache_max_entries"])
	assert.Equal(t, 1.0, values["lifedash_cache_hits_total"])
	assert.Equal(t, 1.0, values["lifedash_cache_misses_total"])
	assert.InDelta(t, 0.5, values["lifedash_cache_hit_ratio"], 1e-9)
	assert.Equal(t, 1.0, values["lifedash_cache_tags"])
}
