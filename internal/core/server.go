// Package core provides the HTTP chassis for the Sun Forecast dashboard. It
// builds the chi router, applies cross-cutting middleware (recovery,
// timeouts, request IDs, logging, metrics, compression) and exposes the
// shared JSON response helpers used by the handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"sunforecast/internal/config"
)

// MetricsCollector defines the interface for recording request telemetry.
type MetricsCollector interface {
	// RecordRequest records request latency and count. Uses MetricAPILatency
	// and MetricAPIRequestCount from the types package.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server encapsulates the HTTP dependencies of the dashboard so tests can
// inject their own.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are executed by GET /health.
	HealthProbes []HealthProbe

	// RootRouteRegistrars mount the HTML dashboard at the router root.
	RootRouteRegistrars []func(chi.Router)

	// V1RouteRegistrars mount the JSON API under /v1. Populated by main to
	// avoid an import cycle between core and the handler package.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer validates its inputs and prepares an empty router. The caller
// registers route groups and then calls MountRoutes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router wrapped in gzip response compression.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server resources. Buffered metrics are flushed when the
// collector supports it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if f, ok := s.Metrics.(interface{ Flush(context.Context) error }); ok {
		if err := f.Flush(ctx); err != nil {
			s.Logger.Error("error flushing metrics", "error", err)
			return fmt.Errorf("flushing metrics: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
