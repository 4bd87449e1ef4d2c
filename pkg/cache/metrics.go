package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walteh/tsmacro/pkg/metrics"
)

var (
	hits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsmacro_cache_hits_total",
			Help: "Compiled files served from the cache, partitioned by backend",
		}, []string{"backend"},
	)

	misses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsmacro_cache_misses_total",
			Help: "Cache lookups that found no entry, partitioned by backend",
		}, []string{"backend"},
	)

	invalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsmacro_cache_invalidations_total",
			Help: "Paths dropped from the cache, partitioned by backend",
		}, []string{"backend"},
	)
)

func init() {
	metrics.Registry.MustRegister(hits, misses, invalidations)
}
