// Package main is the entry point for the Sun Forecast dashboard server.
//
// It loads the configuration (resolving secrets from SSM outside local
// mode), builds the OpenWeatherMap clients, the per-viewer session store and
// the HTTP chassis, and serves the dashboard until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"sunforecast/internal/api/handlers"
	"sunforecast/internal/config"
	"sunforecast/internal/core"
	"sunforecast/internal/dashboard"
	"sunforecast/internal/external"
	"sunforecast/internal/forecasts"
	"sunforecast/internal/tiles"
	"sunforecast/internal/types"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionPruneInterval = time.Minute
	metricsFlushInterval = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// collector is what the dashboard records: HTTP requests, upstream failures
// and view loads.
type collector interface {
	core.MetricsCollector
	RecordUpstreamFailure(provider string, err error)
	RecordDashboardLoad(ctx context.Context, result string, elapsed time.Duration)
}

// app holds the wired components so run can start their background loops.
type app struct {
	server   *core.Server
	sessions *dashboard.Sessions
	metrics  collector
}

func run() error {
	cfg, err := config.LoadConfig(newSecretProvider(os.Getenv))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("sun forecast dashboard starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"stubs", cfg.UsesStubs(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, err := newCollector(ctx, cfg, logger)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg, logger, metrics)
	if err != nil {
		return err
	}

	go a.sessions.RunPruner(ctx, sessionPruneInterval)
	if cw, ok := a.metrics.(*core.CloudWatchMetrics); ok {
		go cw.Run(ctx, metricsFlushInterval)
	}

	return serve(ctx, a.server, cfg, logger)
}

// newSecretProvider picks how _SSM_PARAM references are resolved. Local
// mode needs none. SECRET_PROVIDER=env reads the referenced names from the
// environment, for dev stacks without SSM.
func newSecretProvider(getenv func(string) string) config.SecretProvider {
	if env := getenv("APP_ENV"); env == "" || env == "local" {
		return nil
	}
	if getenv("SECRET_PROVIDER") == "env" {
		return config.NewEnvVarProvider()
	}
	return config.NewSSMProvider(getenv("AWS_REGION"), getenv("AWS_ENDPOINT_URL"))
}

// newCollector publishes to CloudWatch when ENABLE_METRICS is set and logs
// metrics at debug level otherwise.
func newCollector(ctx context.Context, cfg *config.Config, logger *slog.Logger) (collector, error) {
	if !cfg.Observability.EnableMetrics {
		return core.LogMetrics{Logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for CloudWatch: %w", err)
	}
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return core.NewCloudWatchMetrics(client, cfg.Observability.MetricNamespace, logger), nil
}

// buildApp wires every component from cfg. It starts nothing.
func buildApp(cfg *config.Config, logger *slog.Logger, metrics collector) (*app, error) {
	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return nil, fmt.Errorf("loading dashboard time zone: %w", err)
	}

	registry, err := external.NewClientRegistry(cfg, logger,
		external.WithUpstreamFailureObserver(metrics.RecordUpstreamFailure))
	if err != nil {
		return nil, fmt.Errorf("creating external clients: %w", err)
	}

	viewCfg := dashboard.ViewConfig{
		DefaultCity:   cfg.Dashboard.DefaultCity,
		DefaultCoords: types.Coordinates{Lat: cfg.Dashboard.DefaultLat, Lon: cfg.Dashboard.DefaultLon},
		Location:      loc,
		Logger:        logger,
		OnLoad:        metrics.RecordDashboardLoad,
	}
	sessions := dashboard.NewSessions(cfg.Dashboard.SessionTTL, func() *dashboard.View {
		return dashboard.NewView(registry.Geocoder, registry.Forecaster, viewCfg)
	}, logger)

	tileBuilder := tiles.NewBuilder(cfg.OpenWeather.TileURL, cfg.OpenWeather.APIKey.Unmask())
	presenter := dashboard.NewPresenter(dashboard.PresenterConfig{
		IconBaseURL: cfg.OpenWeather.IconURL,
		Tiles:       tileBuilder,
		TileZoom:    cfg.Dashboard.TileZoom,
		TileOriginX: cfg.Dashboard.TileOriginX,
		TileOriginY: cfg.Dashboard.TileOriginY,
		Location:    loc,
	})
	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return nil, err
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	for _, b := range registry.Breakers {
		srv.HealthProbes = append(srv.HealthProbes, core.BreakerProbe{Source: b})
	}

	cookie := handlers.SessionCookie{
		Name:   cfg.Dashboard.CookieName,
		Secure: cfg.Environment != "local",
		MaxAge: cfg.Dashboard.SessionTTL,
	}
	pages := handlers.NewDashboardHandler(sessions, presenter, renderer, cookie, logger)
	pages.InitialLoadTimeout = cfg.Server.RequestTimeout
	api := handlers.NewAPIHandler(
		forecasts.NewService(registry.Geocoder, registry.Forecaster, loc, logger),
		tileBuilder,
		sessions,
		cookie,
		srv.Validator,
		logger,
	)

	srv.RootRouteRegistrars = append(srv.RootRouteRegistrars, pages.RegisterRoutes)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, api.RegisterRoutes)
	srv.MountRoutes()

	return &app{server: srv, sessions: sessions, metrics: metrics}, nil
}

// serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func serve(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog.Logger at the given level. Unknown levels
// fall back to info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
