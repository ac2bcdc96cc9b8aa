package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"sunforecast/internal/types"
)

// openWeatherBase is the default host for the geocoding and forecast APIs.
const openWeatherBase = "https://api.openweathermap.org"

// maxErrorBody bounds how much of an upstream error body is kept for logs.
const maxErrorBody = 512

// OpenWeatherConfig holds the configuration shared by the OpenWeatherMap
// clients.
type OpenWeatherConfig struct {
	APIKey   string
	BaseURL  string // Override for testing; defaults to openWeatherBase
	Country  string // ISO 3166 code appended to geocoding queries; may be empty
	Language string
	Units    string
	Logger   *slog.Logger
}

func (c OpenWeatherConfig) baseURL() string {
	if c.BaseURL == "" {
		return openWeatherBase
	}
	return strings.TrimSuffix(c.BaseURL, "/")
}

func (c OpenWeatherConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ---------------------------------------------------------------------------
// Geocoding
// ---------------------------------------------------------------------------

// geoResult is one element of the /geo/1.0/direct response array.
type geoResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

// OpenWeatherGeocoder implements Geocoder against the OpenWeatherMap direct
// geocoding API.
type OpenWeatherGeocoder struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	country string
	logger  *slog.Logger
}

// NewOpenWeatherGeocoder creates a geocoder that routes requests through base.
func NewOpenWeatherGeocoder(base *BaseClient, cfg OpenWeatherConfig) *OpenWeatherGeocoder {
	return &OpenWeatherGeocoder{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: cfg.baseURL(),
		country: cfg.Country,
		logger:  cfg.logger(),
	}
}

// Resolve looks up city, scoped to the configured country, and returns the
// coordinates of the first match.
func (g *OpenWeatherGeocoder) Resolve(ctx context.Context, city string) (types.Coordinates, error) {
	city = strings.TrimSpace(city)
	if city == "" || utf8.RuneCountInString(city) > types.MaxCityLength {
		return types.Coordinates{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidCity,
			fmt.Sprintf("city must be between 1 and %d characters", types.MaxCityLength),
			nil,
			map[string]any{"city": city},
		)
	}

	query := city
	if g.country != "" {
		query = city + "," + g.country
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("appid", g.apiKey)

	reqURL := g.baseURL + "/geo/1.0/direct?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.Coordinates{}, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create geocoding request",
			err,
		)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.base.Do(req)
	if err != nil {
		return types.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Coordinates{}, upstreamStatusError(ctx, g.logger, resp, types.ErrCodeUpstreamGeocoding, "geocoding")
	}

	var results []geoResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return types.Coordinates{}, types.NewAppError(
			types.ErrCodeUpstreamInvalidReply,
			"failed to decode geocoding response",
			err,
		)
	}

	if len(results) == 0 {
		return types.Coordinates{}, types.NewAppErrorWithDetails(
			types.ErrCodeNotFoundLocation,
			"no location matches the query",
			nil,
			map[string]any{"city": city},
		)
	}

	first := results[0]
	g.logger.DebugContext(ctx, "geocoded city",
		"query", query,
		"match", first.Name,
		"country", first.Country,
	)

	return types.Coordinates{Lat: first.Lat, Lon: first.Lon}, nil
}

// ---------------------------------------------------------------------------
// Forecast
// ---------------------------------------------------------------------------

// forecastResponse mirrors the subset of /data/2.5/forecast the dashboard
// consumes.
type forecastResponse struct {
	List []forecastItem `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (i forecastItem) toEntry() types.ForecastEntry {
	entry := types.ForecastEntry{
		Time:      i.Dt,
		Temp:      i.Main.Temp,
		FeelsLike: i.Main.FeelsLike,
		Humidity:  i.Main.Humidity,
		Pressure:  i.Main.Pressure,
		WindSpeed: i.Wind.Speed,
	}
	if len(i.Weather) > 0 {
		entry.Condition = types.Condition{
			Description: i.Weather[0].Description,
			Icon:        i.Weather[0].Icon,
		}
	}
	return entry
}

// OpenWeatherForecaster implements Forecaster against the OpenWeatherMap
// 5 day / 3 hour forecast API.
type OpenWeatherForecaster struct {
	base     *BaseClient
	apiKey   string
	baseURL  string
	language string
	units    string
	logger   *slog.Logger
}

// NewOpenWeatherForecaster creates a forecaster that routes requests through
// base. Units default to metric.
func NewOpenWeatherForecaster(base *BaseClient, cfg OpenWeatherConfig) *OpenWeatherForecaster {
	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	return &OpenWeatherForecaster{
		base:     base,
		apiKey:   cfg.APIKey,
		baseURL:  cfg.baseURL(),
		language: cfg.Language,
		units:    units,
		logger:   cfg.logger(),
	}
}

// Fetch retrieves the forecast for coords. Entries keep the upstream order.
func (f *OpenWeatherForecaster) Fetch(ctx context.Context, coords types.Coordinates) (*types.ForecastPayload, error) {
	if err := types.ValidateCoordinates(coords); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	params.Set("units", f.units)
	if f.language != "" {
		params.Set("lang", f.language)
	}
	params.Set("appid", f.apiKey)

	reqURL := f.baseURL + "/data/2.5/forecast?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create forecast request",
			err,
		)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamStatusError(ctx, f.logger, resp, types.ErrCodeUpstreamForecast, "forecast")
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamInvalidReply,
			"failed to decode forecast response",
			err,
		)
	}

	payload := &types.ForecastPayload{
		LocationName: body.City.Name,
		Entries:      make([]types.ForecastEntry, 0, len(body.List)),
	}
	for _, item := range body.List {
		payload.Entries = append(payload.Entries, item.toEntry())
	}

	f.logger.DebugContext(ctx, "fetched forecast",
		"location", payload.LocationName,
		"entries", len(payload.Entries),
	)

	return payload, nil
}

// upstreamStatusError maps a non-200, non-retryable upstream response to an
// AppError carrying the status code. A bounded slice of the body is logged.
func upstreamStatusError(ctx context.Context, logger *slog.Logger, resp *http.Response, code types.ErrorCode, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	logger.WarnContext(ctx, "openweather returned unexpected status",
		"operation", op,
		"status", resp.StatusCode,
		"body", string(body),
	)

	msg := fmt.Sprintf("openweather %s returned %d", op, resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized {
		msg = fmt.Sprintf("openweather %s rejected the API key", op)
	}

	return types.NewAppErrorWithDetails(code, msg, nil, map[string]any{
		"status": resp.StatusCode,
	})
}
