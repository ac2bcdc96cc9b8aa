// Package config defines the process configuration for the Sun Forecast
// dashboard. Configuration is loaded once at startup and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format aborts startup.
package config

import (
	"time"

	"sunforecast/internal/types"
)

// SecretString is an alias for types.SecretString so that secrets in config
// are redacted in logs and JSON dumps.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"sunforecast-dashboard"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	OpenWeather   OpenWeatherConfig
	Dashboard     DashboardConfig
	AWS           AWSConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"20s"`
}

// OpenWeatherConfig holds the upstream OpenWeatherMap endpoints and the
// access credential. Base URLs carry no trailing slash.
type OpenWeatherConfig struct {
	APIKey      SecretString  `envconfig:"OPENWEATHER_API_KEY"`
	GeoURL      string        `envconfig:"OPENWEATHER_GEO_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	APIURL      string        `envconfig:"OPENWEATHER_API_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	TileURL     string        `envconfig:"OPENWEATHER_TILE_URL" default:"https://tile.openweathermap.org" validate:"required,url"`
	IconURL     string        `envconfig:"OPENWEATHER_ICON_URL" default:"https://openweathermap.org" validate:"required,url"`
	CountryCode string        `envconfig:"OPENWEATHER_COUNTRY" default:"fr" validate:"omitempty,len=2"`
	Language    string        `envconfig:"OPENWEATHER_LANG" default:"fr" validate:"required,bcp47_language_tag"`
	Units       string        `envconfig:"OPENWEATHER_UNITS" default:"metric" validate:"oneof=metric"`
	Timeout     time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"10s"`
	UserAgent   string        `envconfig:"OPENWEATHER_USER_AGENT" default:"SunForecast/1.0"`
}

// DashboardConfig holds the view defaults: the city shown before any
// search, the viewer time zone used to bucket days, and the tile grid origin.
type DashboardConfig struct {
	DefaultCity string        `envconfig:"DASHBOARD_DEFAULT_CITY" default:"Lyon" validate:"required,max=100"`
	DefaultLat  float64       `envconfig:"DASHBOARD_DEFAULT_LAT" default:"45.7578137" validate:"min=-90,max=90"`
	DefaultLon  float64       `envconfig:"DASHBOARD_DEFAULT_LON" default:"4.8320114" validate:"min=-180,max=180"`
	Timezone    string        `envconfig:"DASHBOARD_TIMEZONE" default:"Europe/Paris" validate:"required,timezone"`
	TileZoom    int           `envconfig:"DASHBOARD_TILE_ZOOM" default:"8" validate:"min=0,max=20"`
	TileOriginX int           `envconfig:"DASHBOARD_TILE_ORIGIN_X" default:"128" validate:"min=0"`
	TileOriginY int           `envconfig:"DASHBOARD_TILE_ORIGIN_Y" default:"97" validate:"min=0"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	CookieName  string        `envconfig:"SESSION_COOKIE" default:"sf_session" validate:"required"`
}

// Location loads the configured viewer time zone. The value is validated at
// load time so an error here means the tz database is unavailable.
func (d DashboardConfig) Location() (*time.Location, error) {
	return time.LoadLocation(d.Timezone)
}

// AWSConfig holds the region used for SSM secret resolution and CloudWatch.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"eu-west-3"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// SecurityConfig holds CORS settings for the JSON API.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"SunForecast"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// UsesStubs reports whether external clients should be replaced by canned
// implementations (local development without an API key, or test mode).
func (c *Config) UsesStubs() bool {
	return c.IsTestMode || (c.Environment == localEnv && c.OpenWeather.APIKey.IsZero())
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrMissingSecret indicates a non-local environment without an API key.
	ErrMissingSecret ConfigErrorType = "MISSING_SECRET"
)
