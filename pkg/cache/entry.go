// Package cache provides the in-memory conditional cache of the GitHub API
// client with ETag support.
package cache

import (
	"time"

	"github.com/Sternrassler/github-api-client/pkg/pagination"
)

// CacheEntry represents a cached GitHub response.
type CacheEntry struct {
	// ETag for conditional requests (If-None-Match)
	ETag string

	// Envelope is the decoded result returned on a 304 hit
	Envelope *pagination.Envelope

	// CachedAt is when we cached this response
	CachedAt time.Time
}

// Age returns how long ago the entry was cached.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// IsExpired returns true if the entry is older than maxAge.
// A non-positive maxAge never expires.
func (e *CacheEntry) IsExpired(maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return e.Age() > maxAge
}
