// Package testutil provides testing utilities for the GitHub API client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"sync"
	"time"
)

// MockGitHubResponse defines the behavior for a mock GitHub endpoint response.
type MockGitHubResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub API server for testing.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount     int
	conditionalCount int
	pathCounts       map[string]int
	lastRequest      *http.Request
}

// NewMockGitHub creates a new mock GitHub server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequest = r.Clone(r.Context())
		if r.Header.Get("If-None-Match") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.pathCounts = make(map[string]int)
	m.lastRequest = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockGitHubResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockGitHub) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// ConditionalCount returns the number of requests carrying If-None-Match.
func (m *MockGitHub) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// PathCount returns the number of requests made to path.
func (m *MockGitHub) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastRequest returns a copy of the last request received.
func (m *MockGitHub) LastRequest() *http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequest
}

// defaultHandler answers every path with a small JSON object and an ETag.
func (m *MockGitHub) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setRateLimitHeaders(w.Header(), 4999)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Header.Get("If-None-Match") != "" {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", `"default-etag"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func setRateLimitHeaders(h http.Header, remaining int) {
	h.Set("X-RateLimit-Limit", "5000")
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	h.Set("X-RateLimit-Resource", "core")
}

// NewHealthyResponse creates a standard 200 OK response with an ETag.
func NewHealthyResponse(data string) MockGitHubResponse {
	return MockGitHubResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "5000",
			"X-RateLimit-Remaining": "4999",
			"ETag":                  `"test-etag-123"`,
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockGitHubResponse {
	return MockGitHubResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message": "Not Found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 403 response for an exhausted budget
// that resets at the given epoch second.
func NewRateLimitResponse(reset int64) MockGitHubResponse {
	return MockGitHubResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(reset, 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockGitHubResponse {
	return MockGitHubResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler creates a handler that answers 304 when the request
// carries etag and a full response otherwise.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setRateLimitHeaders(w.Header(), 4999)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

// NewUserHandler answers /users/{id} style paths with {"id": id, "name": "name{id}"}.
// The id is the last path segment.
func NewUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := path.Base(r.URL.Path)
		setRateLimitHeaders(w.Header(), 4999)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": ` + id + `, "name": "name` + id + `"}`))
	}
}
