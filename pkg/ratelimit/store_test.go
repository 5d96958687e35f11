package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupMiniRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client
}

func TestMemoryStore_LoadSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state, err := store.Load(ctx, ResourceCore)
	if err != nil || state != nil {
		t.Fatalf("Load() on empty store = %v, %v; want nil, nil", state, err)
	}

	saved := &RateLimitState{Limit: 5000, Remaining: 42}
	if err := store.Save(ctx, ResourceCore, saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved.Remaining = 1

	state, err = store.Load(ctx, ResourceCore)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42 (store must copy)", state.Remaining)
	}

	if err := store.Save(ctx, ResourceCore, nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}

func TestRedisStore_LoadSave(t *testing.T) {
	client := setupMiniRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	state, err := store.Load(ctx, ResourceCore)
	if err != nil || state != nil {
		t.Fatalf("Load() on empty redis = %v, %v; want nil, nil", state, err)
	}

	resetAt := time.Now().Add(time.Hour).Truncate(time.Second)
	lastUpdate := time.Now()
	if err := store.Save(ctx, ResourceCore, &RateLimitState{
		Limit:      5000,
		Remaining:  0,
		ResetAt:    resetAt,
		LastUpdate: lastUpdate,
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	state, err = store.Load(ctx, ResourceCore)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state.Limit != 5000 || state.Remaining != 0 {
		t.Errorf("state = %+v", state)
	}
	if !state.ResetAt.Equal(resetAt) {
		t.Errorf("ResetAt = %v, want %v", state.ResetAt, resetAt)
	}
	if !state.LastUpdate.Equal(lastUpdate) {
		t.Errorf("LastUpdate = %v, want %v", state.LastUpdate, lastUpdate)
	}
	if !state.NeedsCriticalBlock() {
		t.Error("loaded state should block")
	}
}

func TestRedisStore_SharedBetweenTrackers(t *testing.T) {
	client := setupMiniRedis(t)
	ctx := context.Background()

	first := NewTracker(NewRedisStore(client), zerolog.Nop())
	second := NewTracker(NewRedisStore(client), zerolog.Nop())

	headers := http.Header{}
	headers.Set(HeaderRemaining, "0")
	headers.Set(HeaderReset, "9999999999")
	if err := first.UpdateFromHeaders(ctx, ResourceCore, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	allowed, _, err := second.ShouldAllowRequest(ctx, ResourceCore)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("second tracker should see the exhausted budget")
	}
}

func TestRedisStore_KeysPerResource(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, ResourceSearch, &RateLimitState{Limit: 10, Remaining: 0}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got, err := mr.Get(RedisKey(ResourceSearch, RedisFieldRemaining)); err != nil || got != "0" {
		t.Errorf("search remaining = %q, %v; want \"0\"", got, err)
	}
	if mr.Exists(RedisKey(ResourceCore, RedisFieldRemaining)) {
		t.Error("saving search state must not write core keys")
	}

	state, err := store.Load(ctx, ResourceCore)
	if err != nil || state != nil {
		t.Errorf("Load(core) = %v, %v; want nil, nil", state, err)
	}
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}
