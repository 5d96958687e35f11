package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimitState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *RateLimitState
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &RateLimitState{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &RateLimitState{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.state.IsStale(tt.maxAge); result != tt.expected {
				t.Errorf("IsStale() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestRateLimitState_NeedsCriticalBlock(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		resetAt   time.Time
		expected  bool
	}{
		{
			name:      "budget left",
			remaining: 10,
			resetAt:   time.Now().Add(time.Minute),
			expected:  false,
		},
		{
			name:      "exhausted before reset",
			remaining: 0,
			resetAt:   time.Now().Add(time.Minute),
			expected:  true,
		},
		{
			name:      "exhausted but reset passed",
			remaining: 0,
			resetAt:   time.Now().Add(-time.Minute),
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Remaining: tt.remaining, ResetAt: tt.resetAt}
			if result := state.NeedsCriticalBlock(); result != tt.expected {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestRateLimitState_IsLow(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		remaining int
		expected  bool
	}{
		{name: "unknown limit", limit: 0, remaining: 0, expected: false},
		{name: "plenty left", limit: 5000, remaining: 4000, expected: false},
		{name: "at warning ratio", limit: 5000, remaining: 500, expected: false},
		{name: "below warning ratio", limit: 5000, remaining: 499, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Limit: tt.limit, Remaining: tt.remaining}
			if result := state.IsLow(); result != tt.expected {
				t.Errorf("IsLow() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestRateLimitState_TimeUntilReset(t *testing.T) {
	past := &RateLimitState{ResetAt: time.Now().Add(-time.Minute)}
	if got := past.TimeUntilReset(); got != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0", got)
	}

	future := &RateLimitState{ResetAt: time.Now().Add(time.Minute)}
	if got := future.TimeUntilReset(); got <= 0 || got > time.Minute {
		t.Errorf("TimeUntilReset() = %v, want within (0, 1m]", got)
	}
}

func TestRateLimitState_UpdateHealth(t *testing.T) {
	state := &RateLimitState{Limit: 5000, Remaining: 4000, ResetAt: time.Now().Add(time.Hour)}
	state.UpdateHealth()
	if !state.IsHealthy {
		t.Error("state with plenty of budget should be healthy")
	}

	state.Remaining = 0
	state.UpdateHealth()
	if state.IsHealthy {
		t.Error("exhausted state should not be healthy")
	}
}
