package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	ghRateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gh_rate_limit_remaining",
		Help: "Number of requests remaining in the current GitHub rate limit window",
	}, []string{"resource"})

	ghRateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the GitHub rate limit is exhausted",
	}, []string{"resource"})
)

// Tracker monitors the GitHub rate limit and gates requests.
type Tracker struct {
	store  Store
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker. A nil store selects a
// MemoryStore.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:  store,
		logger: logger,
	}
}

// GetState retrieves the current rate limit state of resource.
// Returns a default healthy state if nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context, resource string) (*RateLimitState, error) {
	state, err := t.store.Load(ctx, resource)
	if err != nil {
		return nil, fmt.Errorf("load %s rate limit state: %w", resource, err)
	}
	if state == nil {
		t.logger.Debug().Str("resource", resource).Msg("No rate limit state recorded, returning default healthy state")
		return defaultState(), nil
	}
	return state, nil
}

// UpdateFromHeaders parses GitHub rate limit headers and records the state
// of the resource named by X-RateLimit-Resource, or of resource when the
// response names none. Responses without X-RateLimit-Remaining leave the
// state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, resource string, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}
	if named := headers.Get(HeaderResource); named != "" {
		resource = named
	}
	if resource == "" {
		resource = ResourceCore
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	now := time.Now()
	state := &RateLimitState{
		Remaining:  remaining,
		ResetAt:    now,
		LastUpdate: now,
	}

	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		if state.Limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	if resetStr := headers.Get(HeaderReset); resetStr != "" {
		resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderReset, err)
		}
		state.ResetAt = time.Unix(resetEpoch, 0)
	} else if retryStr := headers.Get(HeaderRetryAfter); retryStr != "" {
		if seconds, err := strconv.Atoi(retryStr); err == nil {
			state.ResetAt = now.Add(time.Duration(seconds) * time.Second)
		}
	}
	state.UpdateHealth()

	if err := t.store.Save(ctx, resource, state); err != nil {
		return fmt.Errorf("save %s rate limit state: %w", resource, err)
	}

	ghRateLimitRemaining.WithLabelValues(resource).Set(float64(remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Str("resource", resource).
			Int("remaining", remaining).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit exhausted - requests will be blocked")
	case state.IsLow():
		t.logger.Warn().
			Str("resource", resource).
			Int("remaining", remaining).
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit running low")
	default:
		t.logger.Debug().
			Str("resource", resource).
			Int("remaining", remaining).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request against resource should be allowed
// based on that resource's state. The state is returned so that a refusal can
// report when the window resets.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, resource string) (bool, *RateLimitState, error) {
	state, err := t.GetState(ctx, resource)
	if err != nil {
		return false, nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Warn().
			Str("resource", resource).
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("GitHub rate limit exhausted - blocking request")

		ghRateLimitBlocksTotal.WithLabelValues(resource).Inc()
		return false, state, nil
	}

	return true, state, nil
}
