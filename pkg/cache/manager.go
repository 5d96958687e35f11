package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultMaxSize is the default maximum number of entries
	DefaultMaxSize = 100

	// DefaultMaxAge is the default maximum entry age
	DefaultMaxAge = time.Hour
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrNotCacheable indicates the key carries query parameters
	ErrNotCacheable = errors.New("key is not cacheable")
)

// Manager is a size and age bounded in-memory cache of GitHub responses.
// All methods are safe for concurrent use.
type Manager struct {
	mu     sync.Mutex // serializes Set so the entry gauge counts each new key once
	lru    *expirable.LRU[string, *CacheEntry]
	maxAge time.Duration
}

// NewManager creates a cache holding at most maxSize entries, each for at
// most maxAge. Non-positive values select the defaults.
func NewManager(maxSize int, maxAge time.Duration) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	// Runs under the LRU lock for every removal, including the expiry
	// sweep, so the gauge is kept by delta rather than from Len.
	onEvict := func(_ string, _ *CacheEntry) {
		CacheEvictions.Inc()
		CacheEntries.Dec()
	}

	return &Manager{
		lru:    expirable.NewLRU[string, *CacheEntry](maxSize, onEvict, maxAge),
		maxAge: maxAge,
	}
}

// Get retrieves a cache entry by key and marks it as recently used.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired,
// and ErrNotCacheable for keys that carry query parameters.
func (m *Manager) Get(key CacheKey) (*CacheEntry, error) {
	if !key.Cacheable() {
		return nil, ErrNotCacheable
	}

	entry, ok := m.lru.Get(key.String())
	if !ok || entry.IsExpired(m.maxAge) {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return entry, nil
}

// Set stores a cache entry. Entries for keys that are not cacheable or
// without an ETag are ignored.
func (m *Manager) Set(key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if !key.Cacheable() || entry.ETag == "" {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key.String()
	existed := m.lru.Contains(k)
	m.lru.Add(k, entry)
	if !existed {
		CacheEntries.Inc()
	}

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(key CacheKey) {
	m.lru.Remove(key.String())
}

// Len returns the number of entries, expired ones not yet collected included.
func (m *Manager) Len() int {
	return m.lru.Len()
}

// Purge removes all entries.
func (m *Manager) Purge() {
	m.lru.Purge()
}
