package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists the rate limit state per resource. Load returns nil, nil
// when no state has been saved for the resource yet.
type Store interface {
	Load(ctx context.Context, resource string) (*RateLimitState, error)
	Save(ctx context.Context, resource string, state *RateLimitState) error
}

// MemoryStore keeps the state of a single client process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*RateLimitState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*RateLimitState)}
}

// Load returns a copy of the stored state of resource.
func (s *MemoryStore) Load(_ context.Context, resource string) (*RateLimitState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.states[resource]
	if !ok {
		return nil, nil
	}
	state := *stored
	return &state, nil
}

// Save stores a copy of state for resource.
func (s *MemoryStore) Save(_ context.Context, resource string, state *RateLimitState) error {
	if state == nil {
		return fmt.Errorf("rate limit state cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.states[resource] = &cp
	return nil
}

// RedisStore shares the state between client processes that use the same
// GitHub credentials and therefore the same budget.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Load reads the state of resource from Redis.
func (s *RedisStore) Load(ctx context.Context, resource string) (*RateLimitState, error) {
	pipe := s.redis.Pipeline()
	limitCmd := pipe.Get(ctx, RedisKey(resource, RedisFieldLimit))
	remainingCmd := pipe.Get(ctx, RedisKey(resource, RedisFieldRemaining))
	resetCmd := pipe.Get(ctx, RedisKey(resource, RedisFieldResetTimestamp))
	lastUpdateCmd := pipe.Get(ctx, RedisKey(resource, RedisFieldLastUpdate))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load rate limit state from redis: %w", err)
	}

	remaining, err := remainingCmd.Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := limitCmd.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get limit: %w", err)
	}

	resetTimestamp, err := resetCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	var lastUpdate time.Time
	if raw, err := lastUpdateCmd.Result(); err == nil {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
		lastUpdate = time.Unix(0, nanos)
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// Save stores the state of resource in Redis atomically.
func (s *RedisStore) Save(ctx context.Context, resource string, state *RateLimitState) error {
	if state == nil {
		return fmt.Errorf("rate limit state cannot be nil")
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, RedisKey(resource, RedisFieldLimit), state.Limit, 0)
	pipe.Set(ctx, RedisKey(resource, RedisFieldRemaining), state.Remaining, 0)
	pipe.Set(ctx, RedisKey(resource, RedisFieldResetTimestamp), state.ResetAt.Unix(), 0)
	pipe.Set(ctx, RedisKey(resource, RedisFieldLastUpdate), state.LastUpdate.UnixNano(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
