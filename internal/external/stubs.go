package external

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"sunforecast/internal/types"
)

// ---------------------------------------------------------------------------
// Stub Implementations
//
// Stubs allow the dashboard to boot in local/test mode without an
// OpenWeatherMap key. They log every call and return predictable data.
// ---------------------------------------------------------------------------

// stubCities is the gazetteer served by StubGeocoder, keyed by lowercase name.
var stubCities = map[string]types.Coordinates{
	"lyon":      {Lat: 45.7578137, Lon: 4.8320114},
	"paris":     {Lat: 48.8588897, Lon: 2.3200410},
	"marseille": {Lat: 43.2961743, Lon: 5.3699525},
	"toulouse":  {Lat: 43.6044622, Lon: 1.4442469},
	"bordeaux":  {Lat: 44.8410000, Lon: -0.5800000},
	"lille":     {Lat: 50.6365654, Lon: 3.0635282},
}

// StubGeocoder implements Geocoder with a fixed list of French cities.
// Used when config.UsesStubs() is true.
type StubGeocoder struct {
	logger *slog.Logger
}

// NewStubGeocoder creates a new StubGeocoder.
func NewStubGeocoder(logger *slog.Logger) *StubGeocoder {
	return &StubGeocoder{logger: logger}
}

func (s *StubGeocoder) Resolve(ctx context.Context, city string) (types.Coordinates, error) {
	s.logger.InfoContext(ctx, "stub: Resolve called", "city", city)

	coords, ok := stubCities[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return types.Coordinates{}, types.NewAppErrorWithDetails(
			types.ErrCodeNotFoundLocation,
			"no location matches the query",
			nil,
			map[string]any{"city": city},
		)
	}
	return coords, nil
}

// stubConditions cycles through a plausible day of weather.
var stubConditions = []types.Condition{
	{Description: "ciel dégagé", Icon: "01n"},
	{Description: "ciel dégagé", Icon: "01d"},
	{Description: "peu nuageux", Icon: "02d"},
	{Description: "nuageux", Icon: "04d"},
	{Description: "légère pluie", Icon: "10d"},
	{Description: "couvert", Icon: "04d"},
	{Description: "partiellement nuageux", Icon: "03n"},
	{Description: "ciel dégagé", Icon: "01n"},
}

// StubForecaster implements Forecaster by synthesizing 40 entries at 3-hour
// steps starting at the current 3-hour boundary, mirroring the upstream feed.
type StubForecaster struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewStubForecaster creates a new StubForecaster.
func NewStubForecaster(logger *slog.Logger) *StubForecaster {
	return &StubForecaster{logger: logger, now: time.Now}
}

func (s *StubForecaster) Fetch(ctx context.Context, coords types.Coordinates) (*types.ForecastPayload, error) {
	s.logger.InfoContext(ctx, "stub: Fetch called", "coords", coords.String())

	if err := types.ValidateCoordinates(coords); err != nil {
		return nil, err
	}

	name := "Stub"
	for city, c := range stubCities {
		if c == coords {
			name = strings.ToUpper(city[:1]) + city[1:]
			break
		}
	}

	start := s.now().UTC().Truncate(3 * time.Hour)
	entries := make([]types.ForecastEntry, 0, 40)
	for i := range 40 {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		// Diurnal swing peaking mid-afternoon UTC.
		phase := float64(ts.Hour()-15) / 24 * 2 * math.Pi
		temp := 14 + 6*math.Cos(phase) - coords.Lat/20
		entries = append(entries, types.ForecastEntry{
			Time:      ts.Unix(),
			Temp:      math.Round(temp*100) / 100,
			FeelsLike: math.Round((temp-1.5)*100) / 100,
			Humidity:  60 + (i*7)%30,
			Pressure:  1008 + i%10,
			WindSpeed: 2 + float64(i%5)*0.8,
			Condition: stubConditions[ts.Hour()/3],
		})
	}

	return &types.ForecastPayload{LocationName: name, Entries: entries}, nil
}
