// Package cache provides the in-memory conditional cache of the GitHub API
// client.
//
// The cache stores, per request path, the entity tag (ETag) of the last
// successful response together with its decoded Envelope. The client sends
// the stored tag back in an If-None-Match header; when GitHub answers
// 304 Not Modified the cached Envelope is returned without transferring or
// decoding the body again (and conditional requests answered with 304 do
// not count against the GitHub rate limit).
//
// The cache has the following properties:
//
//   - Bounded by entry count, least recently used entries are evicted first
//   - Bounded by entry age, expired entries read as a miss
//   - Only parameterless requests are cached (see CacheKey.Cacheable)
//   - Safe for concurrent use by many in-flight requests
//   - Owned by exactly one client, never shared process-wide
//
// # Basic Usage
//
//	manager := cache.NewManager(100, time.Hour)
//
//	key := cache.CacheKey{Path: "/users/octocat"}
//
//	entry, err := manager.Get(key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from GitHub
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// GitHub returns 304 if not modified
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - gh_cache_hits_total - Cache hits
//   - gh_cache_misses_total - Cache misses
//   - gh_cache_evictions_total - Entries dropped for size or age
//   - gh_cache_entries - Current number of entries
//   - gh_conditional_requests_total - Requests sent with If-None-Match
//   - gh_304_responses_total - Conditional request successes
package cache
