package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits by tier (memory, redis)
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"}, // "memory", "redis"
	)

	// cacheMisses tracks cache misses
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldsync_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// cacheSize tracks stored bytes by tier
	cacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldsync_cache_size_bytes",
			Help: "Bytes written to the cache by tier",
		},
		[]string{"tier"}, // "memory", "redis"
	)

	// cacheErrors tracks cache operation errors
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "generations"
	)

	// generationPurges tracks stale generation deletions
	generationPurges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldsync_cache_generation_purges_total",
			Help: "Total number of cache generations purged",
		},
	)
)
