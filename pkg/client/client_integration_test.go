//go:build integration

package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/github-api-client/internal/testutil"
	"github.com/Sternrassler/github-api-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

// Two clients sharing a Redis store see each other's rate limit budget.
func TestIntegration_SharedRateLimitStore(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()

	reset := time.Now().Add(time.Hour).Unix()
	mock.SetResponse("/users/limited", testutil.NewRateLimitResponse(reset))

	store := ratelimit.NewRedisStore(redisClient)
	first := newTestClient(t, mock.URL(), func(c *Config) { c.RateLimitStore = store })
	second := newTestClient(t, mock.URL(), func(c *Config) { c.RateLimitStore = store })
	ctx := context.Background()

	if _, err := first.Request(ctx, "/users/limited", nil); err == nil {
		t.Fatal("Expected rate limit error")
	}

	_, err := second.Request(ctx, "/users/other", nil)
	if !errors.Is(err, ErrRateLimitBlocked) {
		t.Fatalf("second client error = %v, want ErrRateLimitBlocked", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}

	state, err := second.RateLimitState(ctx, ratelimit.ResourceCore)
	if err != nil {
		t.Fatalf("RateLimitState() error = %v", err)
	}
	if state.Remaining != 0 || state.ResetAt.Unix() != reset {
		t.Errorf("state = %+v", state)
	}
}

// End-to-end flow: search, then populate the result items, with a Redis
// backed rate limit store receiving header updates.
func TestIntegration_SearchAndPopulate(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()

	mock.SetResponse("/search/users", testutil.NewHealthyResponse(
		`{"total_count": 2, "items": [{"id": 1, "url": "`+mock.URL()+`/users/1"}, {"id": 2, "url": "`+mock.URL()+`/users/2"}]}`))
	mock.SetHandler("/users/1", testutil.NewUserHandler())
	mock.SetHandler("/users/2", testutil.NewUserHandler())

	client := newTestClient(t, mock.URL(), func(c *Config) {
		c.RateLimitStore = ratelimit.NewRedisStore(redisClient)
	})
	ctx := context.Background()

	env, err := client.SearchUsers(ctx, "go", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}

	raw, _ := env.Object()["items"].([]any)
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		obj, _ := r.(map[string]any)
		items = append(items, Item(obj))
	}

	incomplete, err := client.Populate(ctx, items)
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	if len(incomplete) != 0 {
		t.Errorf("incomplete = %v", incomplete)
	}
	for _, item := range items {
		if item["name"] == nil {
			t.Errorf("item %v not populated", item.ID())
		}
	}

	state, err := client.RateLimitState(ctx, ratelimit.ResourceCore)
	if err != nil {
		t.Fatalf("RateLimitState() error = %v", err)
	}
	if state.Remaining != 4999 {
		t.Errorf("Remaining = %d, want 4999", state.Remaining)
	}
}
