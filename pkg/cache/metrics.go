package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_hits_total",
			Help: "Total number of GitHub cache hits",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_misses_total",
			Help: "Total number of GitHub cache misses",
		},
	)

	// CacheEvictions tracks entries removed by size, age, Delete or Purge
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_evictions_total",
			Help: "Total number of GitHub cache entries evicted",
		},
	)

	// CacheEntries tracks the current number of cached entries across managers
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gh_cache_entries",
			Help: "Current number of GitHub cache entries",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_conditional_requests_total",
			Help: "Total number of GitHub requests sent with If-None-Match",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses served from cache
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_304_responses_total",
			Help: "Total number of GitHub 304 Not Modified responses",
		},
	)
)
