package external

import (
	"context"

	"sunforecast/internal/types"

	"github.com/sony/gobreaker/v2"
)

// Geocoder resolves a free-text city name into coordinates.
type Geocoder interface {
	// Resolve issues a single lookup and returns the first match. A query
	// without any match yields types.ErrCodeNotFoundLocation. Results are
	// never cached; repeated calls re-query.
	Resolve(ctx context.Context, city string) (types.Coordinates, error)
}

// Forecaster retrieves the multi-day forecast for a coordinate pair.
type Forecaster interface {
	// Fetch issues a single forecast request and returns the location name
	// and the ordered 3-hourly entries.
	Fetch(ctx context.Context, coords types.Coordinates) (*types.ForecastPayload, error)
}

// BreakerReporter exposes circuit breaker state for health probes.
// *BaseClient satisfies it.
type BreakerReporter interface {
	Name() string
	State() gobreaker.State
}
