package cache

import (
	"net/http"
)

// ShouldMakeConditionalRequest determines if we should add an If-None-Match
// header based on the cache entry.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	return entry != nil && entry.ETag != ""
}

// AddConditionalHeaders adds the If-None-Match header to the request if the
// cache entry carries an ETag.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if req == nil || !ShouldMakeConditionalRequest(entry) {
		return
	}
	req.Header.Set("If-None-Match", entry.ETag)
}
