package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached GitHub response.
//
// Only the request path is part of the key: requests carrying query
// parameters are never cached. This keeps the key trivially correct at the
// price of never caching search or paginated requests.
type CacheKey struct {
	// Path is the request path as passed by the caller (e.g. "/users/octocat")
	Path string

	// QueryParams are the caller supplied query parameters (auth excluded)
	QueryParams url.Values
}

// Cacheable reports whether responses for this key may be cached.
func (k CacheKey) Cacheable() bool {
	return k.Path != "" && len(k.QueryParams) == 0
}

// String returns the cache key string. For keys that are not cacheable the
// sorted query is appended so that the value stays useful in logs.
//
// Example:
//
//	/search/users?page=2&q=language:go
func (k CacheKey) String() string {
	if len(k.QueryParams) == 0 {
		return k.Path
	}

	queryKeys := make([]string, 0, len(k.QueryParams))
	for key := range k.QueryParams {
		queryKeys = append(queryKeys, key)
	}
	sort.Strings(queryKeys)

	parts := make([]string, 0, len(queryKeys))
	for _, key := range queryKeys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
	}

	return k.Path + "?" + strings.Join(parts, "&")
}
