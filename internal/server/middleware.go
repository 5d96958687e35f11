package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

type contextKey string

const (
	formatKey       contextKey = "format"
	originalPathKey contextKey = "original_path"
)

// requestID assigns every request an id (reusing a valid incoming one) and
// stores a logger carrying it in the request context.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		logger := s.logger.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

// recoverer turns panics into internal server errors.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.fail(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// suffixFormats maps URL suffixes to the content type they select.
var suffixFormats = map[string]string{
	".json": contentTypeJSON,
	".msgp": contentTypeMsgpack,
}

// rewriteAccept strips a known format suffix from the path and records the
// content type it selects, which takes precedence over the Accept header.
func rewriteAccept(formats map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), originalPathKey, r.URL.Path)

			for suffix, contentType := range formats {
				if strings.HasSuffix(r.URL.Path, suffix) {
					ctx = context.WithValue(ctx, formatKey, contentType)

					u := *r.URL
					u.Path = strings.TrimSuffix(u.Path, suffix)
					u.RawPath = ""
					r = r.Clone(ctx)
					r.URL = &u
					break
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Expose-Headers", "ETag, Link")
		h.Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// originalPath returns the request path before suffix stripping.
func originalPath(r *http.Request) string {
	if p, ok := r.Context().Value(originalPathKey).(string); ok {
		return p
	}
	return r.URL.Path
}
