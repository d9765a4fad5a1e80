package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks interception-layer cache hits by endpoint prefix.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"endpoint"},
	)

	// CacheMisses tracks interception-layer cache misses by endpoint prefix.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"endpoint"},
	)

	// CacheBypasses tracks requests that skipped the cache on caller signal.
	CacheBypasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_cache_bypasses_total",
			Help: "Total number of cache bypasses",
		},
		[]string{"endpoint"},
	)

	// CacheInvalidations tracks entity invalidations by entity type.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_cache_invalidations_total",
			Help: "Total number of cache invalidations",
		},
		[]string{"entity"},
	)

	// CacheErrors tracks backing-store operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_cache_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "clear"
	)
)
