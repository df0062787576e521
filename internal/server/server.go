// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the health search orchestrator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/pdiddy/health-search/internal/history"
	"github.com/pdiddy/health-search/internal/metrics"
	"github.com/pdiddy/health-search/internal/research"
	"github.com/pdiddy/health-search/pkg/types"
)

const (
	defaultMaxBodyBytes = 64 << 10
	shutdownTimeout     = 10 * time.Second
	recordTimeout       = 5 * time.Second
)

// Searcher runs one query. *research.Orchestrator implements it.
type Searcher interface {
	Configured() error
	Search(ctx context.Context, raw string) (research.Outcome, error)
}

// Server is the HTTP surface.
type Server struct {
	cfg      types.ServerConfig
	searcher Searcher
	recorder history.Recorder
	metrics  *metrics.Collector
	logger   *zap.Logger

	// pending tracks history writes still in flight.
	pending sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithRecorder records every successful search with rec.
func WithRecorder(rec history.Recorder) Option {
	return func(s *Server) { s.recorder = rec }
}

// WithMetrics instruments requests and serves GET /metrics from c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// New returns a server for searcher.
func New(cfg types.ServerConfig, searcher Searcher, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{cfg: cfg, searcher: searcher, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     allowedHeaders,
		OptionsPassthrough: true,
	}))
	r.Use(edgeHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/health-search", s.handleSearch)
	r.Post("/functions/v1/health-search", s.handleSearch)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving HTTP: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving HTTP: %w", err)
	}
	s.Wait()
	return nil
}

// Wait blocks until every background history write has finished.
func (s *Server) Wait() {
	s.pending.Wait()
}
