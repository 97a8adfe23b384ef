package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"velolab/internal/config"
	"velolab/internal/fitfile"
	"velolab/internal/service"
)

// Pinger reports backend health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the analyzer over HTTP
type Server struct {
	analyzer  *service.Analyzer
	generator fitfile.Generator
	cfg       config.ServerConfig
	cache     Pinger
	logger    *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithHealthCheck adds a backend checked by /healthz
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) { s.cache = p }
}

// New creates a server
func New(analyzer *service.Analyzer, generator fitfile.Generator, cfg config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		analyzer:  analyzer,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, instrumented handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /v1/analyze", s.instrument("/v1/analyze", s.handleAnalyze))
	mux.Handle("POST /v1/analyze/fit", s.instrument("/v1/analyze/fit", s.handleAnalyzeFIT))
	mux.Handle("POST /v1/fit", s.instrument("/v1/fit", s.handleGenerateFIT))
	mux.Handle("GET /v1/pmc/{athlete}", s.instrument("/v1/pmc", s.handlePMCHistory))
	mux.Handle("POST /v1/pmc/{athlete}", s.instrument("/v1/pmc", s.handlePMCAdd))
	mux.Handle("POST /v1/pmc/{athlete}/replay", s.instrument("/v1/pmc/replay", s.handlePMCReplay))
	mux.Handle("GET /v1/pmc/{athlete}/performance", s.instrument("/v1/pmc/performance", s.handlePMCPerformance))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.RequestTimeout,
		WriteTimeout: s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr), zap.String("fit_generator", s.generator.Name()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	cacheOK := true
	if s.cache != nil {
		if err := s.cache.Ping(r.Context()); err != nil {
			cacheOK = false
			status, code = "degraded", http.StatusServiceUnavailable
			s.logger.Warn("health check failed", zap.Error(err))
		}
	}
	writeJSON(w, code, map[string]any{
		"status":        status,
		"cache":         cacheOK,
		"fit_generator": s.generator.Name(),
		"placeholder":   s.generator.Placeholder(),
		"timestamp":     time.Now().UTC(),
	})
}
