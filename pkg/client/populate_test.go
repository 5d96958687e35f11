package client

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/github-api-client/internal/testutil"
)

func TestPopulate_Empty(t *testing.T) {
	client := newTestClient(t, "https://api.github.invalid", nil)

	incomplete, err := client.Populate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	if incomplete == nil || len(incomplete) != 0 {
		t.Errorf("incomplete = %#v, want empty non-nil slice", incomplete)
	}
}

func TestPopulate_AllSucceed(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetHandler("/users/1", testutil.NewUserHandler())
	mock.SetHandler("/users/2", testutil.NewUserHandler())

	client := newTestClient(t, mock.URL(), nil)
	items := []Item{
		{"id": 1, "url": "/users/1", "login": "one"},
		{"id": 2, "url": "/users/2", "login": "two"},
	}

	incomplete, err := client.Populate(context.Background(), items)
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	if len(incomplete) != 0 {
		t.Errorf("incomplete = %v, want none", incomplete)
	}

	if items[0]["name"] != "name1" || items[1]["name"] != "name2" {
		t.Errorf("items not populated: %v", items)
	}
	// Fields absent from the fetched object are kept.
	if items[0]["login"] != "one" {
		t.Errorf("login = %v, want one", items[0]["login"])
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}

func TestPopulate_PersistentFailure(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetHandler("/users/1", testutil.NewUserHandler())
	mock.SetHandler("/users/2", testutil.NewUserHandler())
	mock.SetResponse("/users/3", testutil.NewNotFoundResponse())

	client := newTestClient(t, mock.URL(), func(c *Config) { c.MaxRetries = 5 })
	items := []Item{
		{"id": 1, "url": "/users/1"},
		{"id": 2, "url": "/users/2"},
		{"id": 3, "url": "/users/3"},
	}

	incomplete, err := client.Populate(context.Background(), items)
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}

	if !reflect.DeepEqual(incomplete, []any{3}) {
		t.Errorf("incomplete = %#v, want [3]", incomplete)
	}
	if got := mock.PathCount("/users/3"); got != 5 {
		t.Errorf("attempts for /users/3 = %d, want 5", got)
	}
	if got := mock.PathCount("/users/1"); got != 1 {
		t.Errorf("attempts for /users/1 = %d, want 1", got)
	}
	if items[0]["name"] != "name1" || items[1]["name"] != "name2" {
		t.Errorf("successful items not populated: %v", items)
	}
	if _, ok := items[2]["name"]; ok {
		t.Errorf("failed item was modified: %v", items[2])
	}
}

func TestPopulate_SearchBudgetExhausted(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/search/users", testutil.MockGitHubResponse{
		StatusCode: http.StatusOK,
		Body:       `{"total_count": 1, "items": [{"id": 1, "url": "/users/1"}]}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "10",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10),
			"X-RateLimit-Resource":  "search",
		},
	})
	mock.SetHandler("/users/1", testutil.NewUserHandler())

	client := newTestClient(t, mock.URL(), nil)
	ctx := context.Background()

	if _, err := client.SearchUsers(ctx, "go", SearchOptions{}); err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}

	items := []Item{{"id": 1, "url": "/users/1"}}
	incomplete, err := client.Populate(ctx, items)
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	if len(incomplete) != 0 {
		t.Errorf("incomplete = %v, want none", incomplete)
	}
	if items[0]["name"] != "name1" {
		t.Errorf("item not populated: %v", items[0])
	}
	if got := mock.PathCount("/users/1"); got != 1 {
		t.Errorf("PathCount(/users/1) = %d, want 1", got)
	}

	// The search budget itself stays exhausted.
	if _, err := client.SearchUsers(ctx, "go", SearchOptions{}); !errors.Is(err, ErrRateLimitBlocked) {
		t.Errorf("second SearchUsers() error = %v, want ErrRateLimitBlocked", err)
	}
	if got := mock.PathCount("/search/users"); got != 1 {
		t.Errorf("PathCount(/search/users) = %d, want 1", got)
	}
}

func TestPopulate_TransientFailure(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	var calls int32
	mock.SetHandler("/users/7", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		testutil.NewUserHandler()(w, r)
	})

	client := newTestClient(t, mock.URL(), func(c *Config) { c.MaxRetries = 3 })
	items := []Item{{"id": 7, "url": "/users/7"}}

	incomplete, err := client.Populate(context.Background(), items)
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	if len(incomplete) != 0 {
		t.Errorf("incomplete = %v, want none", incomplete)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if items[0]["name"] != "name7" {
		t.Errorf("name = %v, want name7", items[0]["name"])
	}
}

func TestPopulate_ItemWithoutURL(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	client := newTestClient(t, mock.URL(), nil)
	items := []Item{{"id": "orphan"}}

	incomplete, err := client.Populate(context.Background(), items)
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	if !reflect.DeepEqual(incomplete, []any{"orphan"}) {
		t.Errorf("incomplete = %#v, want [orphan]", incomplete)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", mock.RequestCount())
	}
}

func TestPopulate_CancelledContext(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	client := newTestClient(t, mock.URL(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []Item{{"id": 1, "url": "/users/1"}, {"id": 2, "url": "/users/2"}}
	incomplete, err := client.Populate(ctx, items)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if !reflect.DeepEqual(incomplete, []any{1, 2}) {
		t.Errorf("incomplete = %#v, want [1 2]", incomplete)
	}
}

func TestCeilDiv(t *testing.T) {
	tests := []struct {
		n, d, want int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{3, 0, 0},
	}

	for _, tt := range tests {
		if got := ceilDiv(tt.n, tt.d); got != tt.want {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", tt.n, tt.d, got, tt.want)
		}
	}
}
