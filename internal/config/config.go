// Package config loads the gh-search-proxy configuration from an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/github-api-client/pkg/cache"
	"github.com/Sternrassler/github-api-client/pkg/client"
	"github.com/Sternrassler/github-api-client/pkg/logging"
)

// DefaultUserAgent identifies the proxy to GitHub when none is configured.
const DefaultUserAgent = "gh-search-proxy"

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	GitHub GitHubConfig `yaml:"github"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
	Redis  RedisConfig  `yaml:"redis"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
}

// GitHubConfig holds the upstream API settings.
type GitHubConfig struct {
	RootEndpoint   string        `yaml:"rootEndpoint" env:"GITHUB_ROOT_ENDPOINT"`
	AccessToken    string        `yaml:"accessToken" env:"GITHUB_ACCESS_TOKEN"`
	ClientID       string        `yaml:"clientId" env:"GITHUB_CLIENT_ID"`
	ClientSecret   string        `yaml:"clientSecret" env:"GITHUB_CLIENT_SECRET"`
	UserAgent      string        `yaml:"userAgent" env:"GITHUB_USER_AGENT"`
	MaxConcurrency int           `yaml:"maxConcurrency" env:"GITHUB_MAX_CONCURRENCY"`
	MaxRetries     int           `yaml:"maxRetries" env:"GITHUB_MAX_RETRIES"`
	RateLimit      float64       `yaml:"rateLimit" env:"GITHUB_RATE_LIMIT"`
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"GITHUB_REQUEST_TIMEOUT"`
}

// CacheConfig bounds the conditional request cache.
type CacheConfig struct {
	MaxSize int           `yaml:"maxSize" env:"CACHE_MAX_SIZE"`
	MaxAge  time.Duration `yaml:"maxAge" env:"CACHE_MAX_AGE"`
}

// LogConfig selects level and format of the logs.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

// RedisConfig selects the shared rate limit store. An empty URL keeps the
// state in process memory.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		GitHub: GitHubConfig{
			RootEndpoint:   client.DefaultRootEndpoint,
			UserAgent:      DefaultUserAgent,
			MaxConcurrency: client.DefaultMaxConcurrency,
			MaxRetries:     client.DefaultMaxRetries,
			RequestTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			MaxSize: cache.DefaultMaxSize,
			MaxAge:  cache.DefaultMaxAge,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdownTimeout must not be negative"))
	}

	if c.GitHub.UserAgent == "" {
		errs = append(errs, fmt.Errorf("github.userAgent is required"))
	}
	if (c.GitHub.ClientID == "") != (c.GitHub.ClientSecret == "") {
		errs = append(errs, fmt.Errorf("github.clientId and github.clientSecret must be set together"))
	}
	if c.GitHub.MaxConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("github.maxConcurrency must be positive, got %d", c.GitHub.MaxConcurrency))
	}
	if c.GitHub.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("github.maxRetries must be positive, got %d", c.GitHub.MaxRetries))
	}
	if c.GitHub.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("github.rateLimit must not be negative"))
	}

	if c.Cache.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("cache.maxSize must be positive, got %d", c.Cache.MaxSize))
	}
	if c.Cache.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("cache.maxAge must be positive, got %s", c.Cache.MaxAge))
	}

	if !logging.ValidLevel(logging.LogLevel(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			errs = append(errs, fmt.Errorf("redis.url: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ClientConfig maps the GitHub and cache settings onto a client
// configuration. Logger, HTTP client and rate limit store are left to the
// caller.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.GitHub.UserAgent)
	cfg.RootEndpoint = c.GitHub.RootEndpoint
	cfg.AccessToken = c.GitHub.AccessToken
	cfg.ClientID = c.GitHub.ClientID
	cfg.ClientSecret = c.GitHub.ClientSecret
	cfg.MaxConcurrency = c.GitHub.MaxConcurrency
	cfg.MaxRetries = c.GitHub.MaxRetries
	cfg.RateLimit = c.GitHub.RateLimit
	cfg.CacheMaxSize = c.Cache.MaxSize
	cfg.CacheMaxAge = c.Cache.MaxAge
	return cfg
}

// LoggingConfig maps the log settings onto a logging configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	cfg.Service = "gh-search-proxy"
	return cfg
}
