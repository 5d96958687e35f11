// Package server implements the HTTP API of gh-search-proxy: a language
// based GitHub account search whose result items are populated with the
// full account objects.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/github-api-client/pkg/client"
	"github.com/Sternrassler/github-api-client/pkg/metrics"
	"github.com/Sternrassler/github-api-client/pkg/pagination"
)

// GitHub is the part of *client.Client the API handlers use.
type GitHub interface {
	SearchUsers(ctx context.Context, lang string, opts client.SearchOptions) (*pagination.Envelope, error)
	Populate(ctx context.Context, items []client.Item) ([]any, error)
}

// Options configures a Server.
type Options struct {
	// GitHub serves the searches. Required.
	GitHub GitHub

	// Ready reports whether backing services are reachable. Nil means
	// always ready.
	Ready func(ctx context.Context) error

	// Logger is the base request logger. Nil selects the global logger.
	Logger *zerolog.Logger
}

// Server routes the API.
type Server struct {
	Router *chi.Mux

	gh     GitHub
	ready  func(ctx context.Context) error
	logger zerolog.Logger
}

// New builds the router with all routes and middlewares.
func New(opts Options) *Server {
	logger := log.With().Str("component", "server").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	r := chi.NewRouter()
	s := &Server{
		Router: r,
		gh:     opts.GitHub,
		ready:  opts.Ready,
		logger: logger,
	}

	r.Use(s.requestID)
	r.Use(chimw.RealIP)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(rewriteAccept(suffixFormats))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(cors)
		v1.Get("/search/{account_type}", s.handleSearchV1)
	})

	r.Route("/api/v2", func(v2 chi.Router) {
		v2.Get("/users/search", s.handleSearchV2)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, &apiError{Status: http.StatusNotFound, Message: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, &apiError{Status: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to write health response")
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	s.handleHealth(w, r)
}

func (s *Server) handleSearchV2(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Hi from v2 api!"))
}
