// Command gh-search-proxy serves a GitHub account search by language whose
// results are populated with the full account objects.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/github-api-client/internal/config"
	"github.com/Sternrassler/github-api-client/internal/server"
	"github.com/Sternrassler/github-api-client/pkg/client"
	"github.com/Sternrassler/github-api-client/pkg/logging"
	"github.com/Sternrassler/github-api-client/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LoggingConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// app holds the wired components of the proxy.
type app struct {
	handler http.Handler
	client  *client.Client
	redis   *redis.Client
}

func (a *app) Close() {
	a.client.Close()
	if a.redis != nil {
		a.redis.Close()
	}
}

// newApp wires the GitHub client and the HTTP server from cfg. A Redis URL
// selects a shared rate limit store; Redis must be reachable at startup.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	clientCfg := cfg.ClientConfig()
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.GitHub.RequestTimeout}
	clientLogger := logging.NewLogger("github-client")
	clientCfg.Logger = &clientLogger

	a := &app{}
	var ready func(context.Context) error

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)

		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info().Str("addr", opts.Addr).Msg("Connected to Redis, sharing rate limit state")

		clientCfg.RateLimitStore = ratelimit.NewRedisStore(a.redis)
		ready = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}

	gh, err := client.New(clientCfg)
	if err != nil {
		if a.redis != nil {
			a.redis.Close()
		}
		return nil, fmt.Errorf("create github client: %w", err)
	}
	a.client = gh

	serverLogger := logging.NewLogger("server")
	a.handler = server.New(server.Options{
		GitHub: gh,
		Ready:  ready,
		Logger: &serverLogger,
	})

	return a, nil
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("root_endpoint", cfg.GitHub.RootEndpoint).
			Str("user_agent", cfg.GitHub.UserAgent).
			Msg("Starting gh-search-proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
