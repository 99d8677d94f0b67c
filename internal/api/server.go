// Package api exposes the HTTP interface for the booth pipeline: health
// probes, Prometheus metrics, registry inspection, and crawl triggering.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/config"
	"github.com/kaykas/booth-beacon-app-sub000/internal/metrics"
	"github.com/kaykas/booth-beacon-app-sub000/internal/pipeline"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
)

// Server wires HTTP handlers to the pipeline and stores.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	sources  store.SourceRepository
	booths   store.BoothRepository
	cfg      config.Config
	logger   *zap.Logger

	// runMu serializes crawl runs; a second POST while one is in flight
	// gets 409 instead of a queue.
	runMu sync.Mutex
}

// NewServer constructs a Server with middleware and routes.
func NewServer(p *pipeline.Pipeline, sources store.SourceRepository, booths store.BoothRepository, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		pipeline: p,
		sources:  sources,
		booths:   booths,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sources", s.listSources)
		r.Get("/booths/count", s.boothCount)
		r.Post("/crawl", s.triggerCrawl)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The registry read doubles as a backend probe.
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if _, err := s.sources.ListEnabled(ctx, ""); err != nil {
		writeError(w, http.StatusServiceUnavailable, "registry unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.sources.ListEnabled(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.logger.Error("list sources failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) boothCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.booths.Count(r.Context())
	if err != nil {
		s.logger.Error("booth count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count booths")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

type crawlRequest struct {
	Source string `json:"source,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

// triggerCrawl runs the pipeline synchronously and returns the run report.
// The pipeline's own execution budget bounds the request duration.
func (s *Server) triggerCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	if !s.runMu.TryLock() {
		writeError(w, http.StatusConflict, "a crawl run is already in progress")
		return
	}
	defer s.runMu.Unlock()

	report, err := s.pipeline.Run(r.Context(), pipeline.Options{
		SourceName: req.Source,
		Force:      req.Force,
	})
	if err != nil {
		s.logger.Error("crawl run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)
		// The metric label uses the matched route pattern, never the raw
		// path, to keep label cardinality bounded.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, elapsed)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
