package forecasts

import (
	"context"
	"log/slog"
	"time"

	"sunforecast/internal/types"
)

// Geocoder is the subset of external.Geocoder the service depends on.
type Geocoder interface {
	Resolve(ctx context.Context, city string) (types.Coordinates, error)
}

// Fetcher is the subset of external.Forecaster the service depends on.
type Fetcher interface {
	Fetch(ctx context.Context, coords types.Coordinates) (*types.ForecastPayload, error)
}

// Forecast is a fetched forecast already grouped into days.
type Forecast struct {
	LocationName string            `json:"location_name"`
	Coordinates  types.Coordinates `json:"coordinates"`
	Timezone     string            `json:"timezone"`
	Days         []types.DayGroup  `json:"days"`
}

// Service combines the upstream clients with day grouping for callers that
// do not hold view state, such as the JSON API.
type Service struct {
	geocoder Geocoder
	fetcher  Fetcher
	loc      *time.Location
	logger   *slog.Logger
}

// NewService creates a Service grouping days in loc.
func NewService(geocoder Geocoder, fetcher Fetcher, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		geocoder: geocoder,
		fetcher:  fetcher,
		loc:      loc,
		logger:   logger,
	}
}

// Location returns the time zone used for grouping.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Geocode resolves a city name to coordinates.
func (s *Service) Geocode(ctx context.Context, city string) (types.Coordinates, error) {
	return s.geocoder.Resolve(ctx, city)
}

// GetForecast fetches the forecast for coords and groups it by day.
func (s *Service) GetForecast(ctx context.Context, coords types.Coordinates) (*Forecast, error) {
	if err := types.ValidateCoordinates(coords); err != nil {
		return nil, err
	}

	payload, err := s.fetcher.Fetch(ctx, coords)
	if err != nil {
		return nil, err
	}

	days := GroupByDay(payload.Entries, s.loc)
	s.logger.DebugContext(ctx, "grouped forecast",
		"location", payload.LocationName,
		"entries", len(payload.Entries),
		"days", len(days),
	)

	return &Forecast{
		LocationName: payload.LocationName,
		Coordinates:  coords,
		Timezone:     s.loc.String(),
		Days:         days,
	}, nil
}
