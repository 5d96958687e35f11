// Package ratelimit implements GitHub rate limit tracking and request gating.
// It monitors the X-RateLimit-Remaining and X-RateLimit-Reset headers so that
// a client stops sending requests once the budget of the current window is
// spent instead of collecting 403 responses until the reset.
package ratelimit

import (
	"time"
)

// GitHub rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
	HeaderResource   = "X-RateLimit-Resource"
)

// GitHub keeps one budget per resource. Responses name theirs in
// X-RateLimit-Resource.
const (
	ResourceCore   = "core"
	ResourceSearch = "search"
)

// Redis key prefix for rate limit state storage. Keys are
// gh:rate_limit:<resource>:<field>.
const RedisKeyPrefix = "gh:rate_limit:"

// Redis fields of a stored state.
const (
	RedisFieldLimit          = "limit"
	RedisFieldRemaining      = "remaining"
	RedisFieldResetTimestamp = "reset_timestamp"
	RedisFieldLastUpdate     = "last_update"
)

// RedisKey returns the Redis key of field for resource.
func RedisKey(resource, field string) string {
	return RedisKeyPrefix + resource + ":" + field
}

const (
	// DefaultLimit is assumed until the first response reports the real
	// limit. It matches the unauthenticated GitHub core limit.
	DefaultLimit = 60

	// WarningRatio marks the state as low when less than this share of
	// the limit is left.
	WarningRatio = 0.1
)

// RateLimitState represents the GitHub rate limit state of one resource.
type RateLimitState struct {
	// Limit is the request budget of the window (X-RateLimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the window (X-RateLimit-Remaining).
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets (X-RateLimit-Reset, epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while the budget is neither exhausted nor low.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if the budget is spent and the window has
// not been reset yet.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining <= 0 && time.Now().Before(s.ResetAt)
}

// IsLow returns true if less than WarningRatio of the limit is left.
func (s *RateLimitState) IsLow() bool {
	if s.Limit <= 0 {
		return false
	}
	return float64(s.Remaining) < float64(s.Limit)*WarningRatio
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on the current budget.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = !s.NeedsCriticalBlock() && !s.IsLow()
}

// defaultState is returned while no response has reported a budget yet.
func defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Limit:      DefaultLimit,
		Remaining:  DefaultLimit,
		ResetAt:    now.Add(time.Hour),
		LastUpdate: now,
		IsHealthy:  true,
	}
}
