package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"sunforecast/internal/core"
	"sunforecast/internal/dashboard"
	"sunforecast/internal/forecasts"
	"sunforecast/internal/tiles"
	"sunforecast/internal/types"
)

var (
	lyon  = types.Coordinates{Lat: 45.7578137, Lon: 4.8320114}
	paris = types.Coordinates{Lat: 48.8588897, Lon: 2.3200410}
)

type stubGeocoder struct {
	mu    sync.Mutex
	known map[string]types.Coordinates
	calls []string
}

func (g *stubGeocoder) Resolve(_ context.Context, city string) (types.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, city)
	c, ok := g.known[city]
	if !ok {
		return types.Coordinates{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundLocation, "no location matches", nil,
			map[string]any{"city": city})
	}
	return c, nil
}

type stubForecaster struct {
	mu    sync.Mutex
	names map[types.Coordinates]string
	err   error
	calls int
}

func (f *stubForecaster) Fetch(_ context.Context, coords types.Coordinates) (*types.ForecastPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	p := &types.ForecastPayload{LocationName: f.names[coords]}
	for i := range 16 {
		p.Entries = append(p.Entries, types.ForecastEntry{
			Time:      start.Add(time.Duration(i) * 3 * time.Hour).Unix(),
			Temp:      12.4,
			FeelsLike: 11.6,
			Humidity:  70,
			WindSpeed: 4.17,
			Condition: types.Condition{Description: "légère pluie", Icon: "10d"},
		})
	}
	return p, nil
}

func (f *stubForecaster) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	geo      *stubGeocoder
	fc       *stubForecaster
	sessions *dashboard.Sessions
	router   chi.Router
}

const testCookie = "sf_session"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := discardLogger()
	geo := &stubGeocoder{known: map[string]types.Coordinates{"Paris": paris, "Lyon": lyon}}
	fc := &stubForecaster{names: map[types.Coordinates]string{lyon: "Lyon", paris: "Paris"}}

	sessions := dashboard.NewSessions(time.Hour, func() *dashboard.View {
		return dashboard.NewView(geo, fc, dashboard.ViewConfig{
			DefaultCity:   "Lyon",
			DefaultCoords: lyon,
			Location:      time.UTC,
			Logger:        logger,
		})
	}, logger)

	builder := tiles.NewBuilder("https://tile.example", "k3y")
	presenter := dashboard.NewPresenter(dashboard.PresenterConfig{
		IconBaseURL: "https://icons.example",
		Tiles:       builder,
		TileZoom:    8,
		TileOriginX: 128,
		TileOriginY: 97,
		Location:    time.UTC,
	})
	renderer, err := dashboard.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	cookie := SessionCookie{Name: testCookie, MaxAge: time.Hour}
	pages := NewDashboardHandler(sessions, presenter, renderer, cookie, logger)
	api := NewAPIHandler(forecasts.NewService(geo, fc, time.UTC, logger), builder, sessions, cookie,
		core.NewValidator(logger), logger)

	r := chi.NewRouter()
	pages.RegisterRoutes(r)
	r.Route("/v1", api.RegisterRoutes)

	return &fixture{geo: geo, fc: fc, sessions: sessions, router: r}
}

// sessionCookie returns the session cookie set by resp, or nil.
func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}
