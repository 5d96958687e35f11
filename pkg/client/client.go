// Package client provides the GitHub REST API client with conditional
// caching, rate limit tracking, bounded concurrency batches and populate.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/github-api-client/pkg/cache"
	"github.com/Sternrassler/github-api-client/pkg/pagination"
	"github.com/Sternrassler/github-api-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for GitHub client operations.
var (
	ghRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_requests_total",
		Help: "Total GitHub requests by status",
	}, []string{"status"})

	ghRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gh_request_duration_seconds",
		Help:    "GitHub request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	ghErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_errors_total",
		Help: "Total GitHub errors by kind",
	}, []string{"kind"})
)

const (
	// DefaultRootEndpoint is the public GitHub API.
	DefaultRootEndpoint = "https://api.github.com"

	// DefaultAccept selects the v3 media type.
	DefaultAccept = "application/vnd.github.v3+json"

	// DefaultMaxConcurrency caps the in-flight requests of one batch.
	DefaultMaxConcurrency = 5

	// DefaultMaxRetries caps the attempts per item of Populate.
	DefaultMaxRetries = 5
)

// Doer executes a single HTTP request. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the GitHub API client. A Client owns its cache; it is safe for
// concurrent use.
type Client struct {
	httpClient  Doer
	root        *url.URL
	cache       *cache.Manager
	rateLimiter *ratelimit.Tracker
	limiter     *rate.Limiter
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// RootEndpoint is prepended to relative request paths.
	RootEndpoint string

	// AccessToken is sent as access_token unless a client id/secret pair
	// is configured.
	AccessToken string

	// ClientID and ClientSecret identify an OAuth application. They take
	// precedence over AccessToken.
	ClientID     string
	ClientSecret string

	// User-Agent header (REQUIRED by GitHub)
	UserAgent string

	// Accept header
	Accept string

	// Caching
	CacheMaxSize int
	CacheMaxAge  time.Duration

	// Concurrency
	MaxConcurrency int // Max parallel requests per batch

	// Populate
	MaxRetries int // Attempts per item

	// RateLimit paces requests (per second). 0 disables pacing.
	RateLimit float64

	// RateLimitStore holds the observed GitHub budget. Nil selects an
	// in-memory store; a ratelimit.RedisStore shares it between processes.
	RateLimitStore ratelimit.Store

	// HTTPClient executes requests. Nil selects an *http.Client with a
	// 30 second timeout.
	HTTPClient Doer

	// Logger receives debug output. Nil selects the global logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		RootEndpoint:   DefaultRootEndpoint,
		UserAgent:      userAgent,
		Accept:         DefaultAccept,
		CacheMaxSize:   cache.DefaultMaxSize,
		CacheMaxAge:    cache.DefaultMaxAge,
		MaxConcurrency: DefaultMaxConcurrency,
		MaxRetries:     DefaultMaxRetries,
	}
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}

	if cfg.RootEndpoint == "" {
		cfg.RootEndpoint = DefaultRootEndpoint
	}
	root, err := url.Parse(strings.TrimRight(cfg.RootEndpoint, "/"))
	if err != nil || root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("%w: root endpoint must be an absolute url (got %q)", ErrInvalidConfig, cfg.RootEndpoint)
	}

	if (cfg.ClientID == "") != (cfg.ClientSecret == "") {
		return nil, fmt.Errorf("%w: client id and client secret must be set together", ErrInvalidConfig)
	}

	if cfg.MaxConcurrency < 0 || cfg.MaxRetries < 0 || cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%w: concurrency, retries and rate limit must not be negative", ErrInvalidConfig)
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Accept == "" {
		cfg.Accept = DefaultAccept
	}

	logger := log.With().Str("component", "github-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		httpClient:  httpClient,
		root:        root,
		cache:       cache.NewManager(cfg.CacheMaxSize, cfg.CacheMaxAge),
		rateLimiter: ratelimit.NewTracker(cfg.RateLimitStore, logger),
		limiter:     rate.NewLimiter(limit, cfg.MaxConcurrency),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Request performs a GET request against path (absolute or relative to the
// root endpoint) and returns the decoded body. Parameterless requests are
// cached by path and revalidated with If-None-Match. Every failure is a
// *ClientError.
func (c *Client) Request(ctx context.Context, path string, params url.Values) (*pagination.Envelope, error) {
	key := cache.CacheKey{Path: path, QueryParams: params}

	var cached *cache.CacheEntry
	if key.Cacheable() {
		if entry, err := c.cache.Get(key); err == nil {
			cached = entry
		}
	}

	return c.do(ctx, key, cached, false)
}

// do executes one attempt. A 304 answer to a request that carried no
// If-None-Match is retried once without conditional state (reissued=true).
func (c *Client) do(ctx context.Context, key cache.CacheKey, cached *cache.CacheEntry, reissued bool) (*pagination.Envelope, error) {
	target, display, err := c.buildURL(key.Path, key.QueryParams)
	if err != nil {
		return nil, c.fail(NewTransportError(err))
	}

	// Step 1: Check Rate Limit
	resource := c.resourceFor(key.Path)
	allowed, state, err := c.rateLimiter.ShouldAllowRequest(ctx, resource)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Rate limit check failed, sending request anyway")
	} else if !allowed {
		ghRequestsTotal.WithLabelValues("rate_limited").Inc()
		return nil, c.fail(NewRateLimitBlockedError(state))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(NewTransportError(err))
	}

	// Step 2: Build request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.fail(NewTransportError(err))
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", c.config.Accept)

	if cached != nil {
		cache.AddConditionalHeaders(req, cached)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().Str("url", display).Str("etag", cached.ETag).Msg("Making conditional request")
	} else {
		c.logger.Debug().Str("url", display).Msg("Making request")
	}

	// Step 3: Execute
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	ghRequestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		c.logger.Debug().Err(err).Str("url", display).Msg("HTTP request failed")
		ghRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, c.fail(NewTransportError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ghRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, c.fail(NewTransportError(fmt.Errorf("read response body: %w", err)))
	}

	ghRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("url", display).
		Int("status", resp.StatusCode).
		Bytes("body", body).
		Msg("Received response")

	if err := c.rateLimiter.UpdateFromHeaders(ctx, resource, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	// Step 4: Handle status
	switch resp.StatusCode {
	case http.StatusOK:
		env, err := pagination.NewEnvelope(body, resp.Header.Get("Link"))
		if err != nil {
			return nil, c.fail(NewMalformedBodyError(err))
		}

		if etag := resp.Header.Get("ETag"); etag != "" && key.Cacheable() {
			if err := c.cache.Set(key, &cache.CacheEntry{ETag: etag, Envelope: env}); err != nil {
				c.logger.Warn().Err(err).Str("url", display).Msg("Failed to cache response")
			} else {
				c.logger.Debug().Str("url", display).Str("etag", etag).Msg("Cached response")
			}
			return env.Clone(), nil
		}
		return env, nil

	case http.StatusNotModified:
		if cached != nil {
			cache.NotModifiedResponses.Inc()
			c.logger.Debug().Str("url", display).Msg("304 Not Modified - using cache")
			return cached.Envelope.Clone(), nil
		}
		if !reissued {
			c.logger.Debug().Str("url", display).Msg("304 Not Modified without cache entry - reissuing request")
			return c.do(ctx, key, nil, true)
		}
	}

	return nil, c.fail(Classify(resp.StatusCode, resp.Header, body, display))
}

// fail records a classified error.
func (c *Client) fail(err *ClientError) *ClientError {
	ghErrorsTotal.WithLabelValues(string(err.Kind)).Inc()
	c.logger.Debug().
		Str("kind", string(err.Kind)).
		Int("status", err.Status).
		Str("description", err.Description).
		Msg("Request classified as error")
	return err
}

// buildURL resolves path against the root endpoint and appends params and
// credentials. display is the same url without credentials, for logs and
// error descriptions.
func (c *Client) buildURL(path string, params url.Values) (target, display string, err error) {
	var u *url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err = url.Parse(path)
	} else {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		u, err = url.Parse(c.root.String() + path)
	}
	if err != nil {
		return "", "", fmt.Errorf("build request url: %w", err)
	}

	query := u.Query()
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	u.RawQuery = query.Encode()
	display = u.String()

	switch {
	case c.config.ClientID != "" && c.config.ClientSecret != "":
		query.Set("client_id", c.config.ClientID)
		query.Set("client_secret", c.config.ClientSecret)
	case c.config.AccessToken != "":
		query.Set("access_token", c.config.AccessToken)
	}
	u.RawQuery = query.Encode()

	return u.String(), display, nil
}

// resourceFor names the rate limit budget a request to path draws from.
func (c *Client) resourceFor(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return ratelimit.ResourceCore
		}
		path = u.Path
		if u.Host == c.root.Host {
			path = strings.TrimPrefix(path, c.root.Path)
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/search" || strings.HasPrefix(path, "/search/") {
		return ratelimit.ResourceSearch
	}
	return ratelimit.ResourceCore
}

// Cache returns the cache manager (for testing).
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// RateLimitState returns the last observed GitHub rate limit state of
// resource (ratelimit.ResourceCore or ratelimit.ResourceSearch).
func (c *Client) RateLimitState(ctx context.Context, resource string) (*ratelimit.RateLimitState, error) {
	return c.rateLimiter.GetState(ctx, resource)
}

// Close releases the client resources.
func (c *Client) Close() error {
	c.cache.Purge()
	return nil
}
