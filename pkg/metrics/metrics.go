// Package metrics exposes the Prometheus metrics of the GitHub client.
// Metrics are defined in their respective packages (client, cache, ratelimit)
// and registered via promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registerer all client metrics are registered on.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the Prometheus gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - gh_rate_limit_remaining (Gauge): Requests left in the current GitHub window
//   - gh_rate_limit_blocks_total (Counter): Requests refused locally while exhausted
//
// Cache Metrics (pkg/cache):
//   - gh_cache_hits_total (Counter): Cache lookups that found an entry
//   - gh_cache_misses_total (Counter): Cache lookups without entry
//   - gh_cache_evictions_total (Counter): Entries evicted by size or age
//   - gh_cache_entries (Gauge): Current number of cached entries
//   - gh_conditional_requests_total (Counter): Requests sent with If-None-Match
//   - gh_304_responses_total (Counter): 304 answers served from the cache
//
// Request Metrics (pkg/client):
//   - gh_requests_total{status} (Counter): Requests by HTTP status, network_error or rate_limited
//   - gh_request_duration_seconds (Histogram): Request duration
//   - gh_errors_total{kind} (Counter): Classified errors by kind
//   - gh_populate_rounds_total (Counter): Populate request rounds
//   - gh_populate_incomplete_total (Counter): Items left incomplete by populate
//
// Example Prometheus Queries:
//
//   # Conditional request hit rate
//   rate(gh_304_responses_total[5m]) / rate(gh_conditional_requests_total[5m])
//
//   # Budget running out
//   gh_rate_limit_remaining < 10
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(gh_request_duration_seconds_bucket[5m]))
