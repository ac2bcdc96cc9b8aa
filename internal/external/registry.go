package external

import (
	"log/slog"
	"net/http"

	"sunforecast/internal/config"
)

// ClientRegistry holds the upstream clients. It is the single point of access
// for the rest of the application to reach OpenWeatherMap.
type ClientRegistry struct {
	Geocoder   Geocoder
	Forecaster Forecaster

	// Breakers lists the circuit breakers behind the real clients so health
	// probes can report them. Empty in stub mode.
	Breakers []BreakerReporter
}

// RegistryOption is a functional option for configuring a ClientRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	observer   FailureObserver
	httpClient *http.Client
}

// WithUpstreamFailureObserver installs fn on every BaseClient the registry
// creates. It is a no-op in stub mode.
func WithUpstreamFailureObserver(fn FailureObserver) RegistryOption {
	return func(rc *registryConfig) {
		rc.observer = fn
	}
}

// WithHTTPClient overrides the http.Client shared by the real clients.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(rc *registryConfig) {
		rc.httpClient = c
	}
}

// NewClientRegistry initializes the upstream clients. When cfg.UsesStubs()
// reports true the registry is populated with Stub implementations that need
// no API key. Otherwise the OpenWeatherMap clients are built with the
// configured timeout.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rc := &registryConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	if cfg.UsesStubs() {
		logger.Info("initializing external clients in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
		return newStubRegistry(logger), nil
	}

	logger.Info("initializing external clients in PRODUCTION mode",
		"environment", cfg.Environment,
	)
	return newProductionRegistry(cfg, logger, rc), nil
}

func newStubRegistry(logger *slog.Logger) *ClientRegistry {
	stubLogger := logger.With("mode", "stub")

	return &ClientRegistry{
		Geocoder:   NewStubGeocoder(stubLogger),
		Forecaster: NewStubForecaster(stubLogger),
	}
}

func newProductionRegistry(cfg *config.Config, logger *slog.Logger, rc *registryConfig) *ClientRegistry {
	httpClient := rc.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.OpenWeather.Timeout}
	}

	var baseOpts []BaseClientOption
	if rc.observer != nil {
		baseOpts = append(baseOpts, WithFailureObserver(rc.observer))
	}

	ow := cfg.OpenWeather

	geoBase := NewBaseClient(httpClient, "openweather-geocoding", ow.UserAgent, baseOpts...)
	geocoder := NewOpenWeatherGeocoder(geoBase, OpenWeatherConfig{
		APIKey:  ow.APIKey.Unmask(),
		BaseURL: ow.GeoURL,
		Country: ow.CountryCode,
		Logger:  logger.With("client", "openweather-geocoding"),
	})

	forecastBase := NewBaseClient(httpClient, "openweather-forecast", ow.UserAgent, baseOpts...)
	forecaster := NewOpenWeatherForecaster(forecastBase, OpenWeatherConfig{
		APIKey:   ow.APIKey.Unmask(),
		BaseURL:  ow.APIURL,
		Language: ow.Language,
		Units:    ow.Units,
		Logger:   logger.With("client", "openweather-forecast"),
	})

	return &ClientRegistry{
		Geocoder:   geocoder,
		Forecaster: forecaster,
		Breakers:   []BreakerReporter{geoBase, forecastBase},
	}
}
