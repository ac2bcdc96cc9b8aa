// Package dashboard holds the per-viewer dashboard state and the operations
// that change it: the initial load, city search, day selection and map layer
// selection. Only load and search reach the network; selecting a day or a
// layer re-renders from data already fetched.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sunforecast/internal/forecasts"
	"sunforecast/internal/types"
)

// ErrSuperseded is returned by Load and Search when a newer load was issued
// for the same view while this one was in flight. Its result was discarded.
var ErrSuperseded = errors.New("dashboard: load superseded by a newer request")

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, city string) (types.Coordinates, error)
}

// Forecaster fetches the forecast for a coordinate pair.
type Forecaster interface {
	Fetch(ctx context.Context, coords types.Coordinates) (*types.ForecastPayload, error)
}

// LoadObserver is notified when a forecast load settles. result is one of
// "ok", "failed" or "stale".
type LoadObserver func(ctx context.Context, result string, elapsed time.Duration)

// Load results reported to LoadObserver.
const (
	LoadResultOK     = "ok"
	LoadResultFailed = "failed"
	LoadResultStale  = "stale"
)

// ViewConfig holds what every View needs besides its upstream clients.
type ViewConfig struct {
	DefaultCity   string
	DefaultCoords types.Coordinates
	Location      *time.Location
	Logger        *slog.Logger
	OnLoad        LoadObserver
}

// State is an immutable snapshot of a View.
type State struct {
	City        string                 `json:"city"`
	Coordinates types.Coordinates      `json:"coordinates"`
	SelectedDay int                    `json:"selected_day"`
	Layer       types.MapLayer         `json:"layer"`
	Loading     bool                   `json:"loading"`
	Payload     *types.ForecastPayload `json:"-"`
	Days        []types.DayGroup       `json:"days"`
	LastError   error                  `json:"-"`
	Generation  uint64                 `json:"generation"`
}

// Loaded reports whether a forecast has ever been applied.
func (s State) Loaded() bool {
	return s.Payload != nil
}

// View is the stateful dashboard for one viewer. All methods are safe for
// concurrent use.
type View struct {
	geocoder   Geocoder
	forecaster Forecaster
	cfg        ViewConfig
	logger     *slog.Logger

	mu          sync.Mutex
	city        string
	coords      types.Coordinates
	selectedDay int
	layer       types.MapLayer
	inflight    int
	payload     *types.ForecastPayload
	days        []types.DayGroup
	lastErr     error
	seq         uint64 // last issued load
	applied     uint64 // load whose payload is displayed
}

// NewView creates a View showing nothing yet. Call LoadDefault to fetch the
// default city.
func NewView(geocoder Geocoder, forecaster Forecaster, cfg ViewConfig) *View {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &View{
		geocoder:   geocoder,
		forecaster: forecaster,
		cfg:        cfg,
		logger:     logger,
		city:       cfg.DefaultCity,
		coords:     cfg.DefaultCoords,
		layer:      types.MapLayerPrecipitation,
		days:       []types.DayGroup{},
	}
}

// LoadDefault fetches the forecast for the configured default city without
// geocoding it.
func (v *View) LoadDefault(ctx context.Context) error {
	return v.Load(ctx, v.cfg.DefaultCoords, v.cfg.DefaultCity)
}

// Load fetches the forecast for coords and, if no newer load was issued in
// the meantime, makes it the displayed data. city labels the search box.
// On failure the displayed data is left untouched and the error is recorded.
func (v *View) Load(ctx context.Context, coords types.Coordinates, city string) error {
	return v.load(ctx, v.begin(), coords, city)
}

// StartDefaultIfIdle begins loading the default city in the background when
// the view has nothing to show: no forecast applied and no load running.
// The view reports Loading before it returns. The channel receives the load
// result once the view has settled. It returns nil and starts nothing
// otherwise, so a failed first load is retried by the next caller.
func (v *View) StartDefaultIfIdle(ctx context.Context) <-chan error {
	v.mu.Lock()
	if v.payload != nil || v.inflight > 0 {
		v.mu.Unlock()
		return nil
	}
	v.seq++
	seq := v.seq
	// Held until runDefault settles, so Loading is visible immediately.
	v.inflight++
	v.mu.Unlock()
	return v.runDefault(ctx, seq)
}

func (v *View) runDefault(ctx context.Context, seq uint64) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := v.load(ctx, seq, v.cfg.DefaultCoords, v.cfg.DefaultCity)
		v.mu.Lock()
		v.inflight--
		v.mu.Unlock()
		done <- err
	}()
	return done
}

// Search geocodes city and loads its forecast. A geocoding failure issues no
// forecast request and leaves the displayed data untouched.
func (v *View) Search(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return types.NewAppError(types.ErrCodeValidationInvalidCity, "city is required", nil)
	}

	seq := v.begin()
	log := types.LoggerFromContext(ctx, v.logger)

	coords, err := v.geocoder.Resolve(ctx, city)
	if err != nil {
		log.WarnContext(ctx, "geocoding failed", "city", city, "error", err)
		v.mu.Lock()
		if seq == v.seq {
			v.lastErr = err
		}
		v.mu.Unlock()
		return err
	}

	if !v.isLatest(seq) {
		log.InfoContext(ctx, "dropping superseded search before forecast", "city", city)
		return ErrSuperseded
	}

	return v.load(ctx, seq, coords, city)
}

func (v *View) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	return v.seq
}

func (v *View) isLatest(seq uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return seq == v.seq
}

func (v *View) load(ctx context.Context, seq uint64, coords types.Coordinates, city string) error {
	log := types.LoggerFromContext(ctx, v.logger)
	start := time.Now()

	v.mu.Lock()
	v.inflight++
	v.mu.Unlock()

	result := LoadResultFailed
	defer func() {
		v.mu.Lock()
		v.inflight--
		v.mu.Unlock()
		if v.cfg.OnLoad != nil {
			v.cfg.OnLoad(ctx, result, time.Since(start))
		}
	}()

	payload, err := v.forecaster.Fetch(ctx, coords)

	v.mu.Lock()
	defer v.mu.Unlock()

	if seq != v.seq {
		result = LoadResultStale
		log.InfoContext(ctx, "discarding superseded forecast",
			"city", city,
			"seq", seq,
			"latest", v.seq,
		)
		return ErrSuperseded
	}

	if err != nil {
		log.ErrorContext(ctx, "forecast fetch failed",
			"city", city,
			"coords", coords.String(),
			"error", err,
		)
		v.lastErr = err
		return err
	}

	result = LoadResultOK
	v.city = city
	v.coords = coords
	v.payload = payload
	v.days = forecasts.GroupByDay(payload.Entries, v.cfg.Location)
	v.selectedDay = 0
	v.lastErr = nil
	v.applied = seq

	log.InfoContext(ctx, "forecast loaded",
		"city", city,
		"location", payload.LocationName,
		"days", len(v.days),
	)
	return nil
}

// SelectDay switches the detailed view to day index. It never reaches the
// network.
func (v *View) SelectDay(index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if index < 0 || index >= len(v.days) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidDay,
			"day index out of range",
			nil,
			map[string]any{"index": index, "days": len(v.days)},
		)
	}
	v.selectedDay = index
	return nil
}

// SelectLayer switches the map gallery overlay. It never reaches the network.
func (v *View) SelectLayer(layer types.MapLayer) error {
	if !layer.Valid() {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidLayer,
			"unknown map layer",
			nil,
			map[string]any{"layer": string(layer)},
		)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.layer = layer
	return nil
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	return State{
		City:        v.city,
		Coordinates: v.coords,
		SelectedDay: v.selectedDay,
		Layer:       v.layer,
		Loading:     v.inflight > 0,
		Payload:     v.payload,
		Days:        v.days,
		LastError:   v.lastErr,
		Generation:  v.applied,
	}
}
