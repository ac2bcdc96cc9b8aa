package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"sunforecast/internal/core"
	"sunforecast/internal/dashboard"
	"sunforecast/internal/forecasts"
	"sunforecast/internal/types"
)

// ForecastService is the stateless lookup used by the API. Satisfied by
// *forecasts.Service.
type ForecastService interface {
	Geocode(ctx context.Context, city string) (types.Coordinates, error)
	GetForecast(ctx context.Context, coords types.Coordinates) (*forecasts.Forecast, error)
}

// TileURLBuilder builds tile image URLs. Satisfied by *tiles.Builder.
type TileURLBuilder interface {
	URL(layer types.MapLayer, zoom, x, y int) (string, error)
}

// APIHandler serves the /v1 JSON API. Lookups are stateless; the
// /dashboard routes drive the caller's session View.
type APIHandler struct {
	service   ForecastService
	tiles     TileURLBuilder
	sessions  SessionStore
	cookie    SessionCookie
	validator *core.Validator
	logger    *slog.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(
	svc ForecastService,
	tileBuilder TileURLBuilder,
	sessions SessionStore,
	cookie SessionCookie,
	val *core.Validator,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{
		service:   svc,
		tiles:     tileBuilder,
		sessions:  sessions,
		cookie:    cookie,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the API onto the /v1 group.
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/geocode", h.HandleGeocode)
	r.Get("/forecast", h.HandleForecast)
	r.Get("/tiles/{layer}/{z}/{x}/{y}", h.HandleTileURL)

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.HandleGetDashboard)
		r.Post("/search", h.HandleSearch)
		r.Post("/day", h.HandleSelectDay)
		r.Post("/layer", h.HandleSelectLayer)
	})
}

// GeocodeResponse is returned by GET /v1/geocode.
type GeocodeResponse struct {
	Query       string            `json:"query"`
	Coordinates types.Coordinates `json:"coordinates"`
}

// HandleGeocode handles GET /v1/geocode?q=<city>.
func (h *APIHandler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "query parameter q is required", nil))
		return
	}

	coords, err := h.service.Geocode(r.Context(), q)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, GeocodeResponse{Query: q, Coordinates: coords})
}

// HandleForecast handles GET /v1/forecast?lat=&lon=.
func (h *APIHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseFloatParam(q.Get("lat"), "lat", types.ErrCodeValidationInvalidLat)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	lon, err := parseFloatParam(q.Get("lon"), "lon", types.ErrCodeValidationInvalidLon)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	fc, err := h.service.GetForecast(r.Context(), types.Coordinates{Lat: lat, Lon: lon})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	core.Data(w, r, http.StatusOK, fc)
}

// TileResponse is returned by GET /v1/tiles/{layer}/{z}/{x}/{y}.
type TileResponse struct {
	Layer types.MapLayer `json:"layer"`
	URL   string         `json:"url"`
}

// HandleTileURL builds the upstream tile URL. The API key is part of the
// URL, so the response must not be cached by shared caches.
func (h *APIHandler) HandleTileURL(w http.ResponseWriter, r *http.Request) {
	layer, err := types.ParseMapLayer(chi.URLParam(r, "layer"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var coords [3]int
	for i, name := range []string{"z", "x", "y"} {
		n, convErr := strconv.Atoi(chi.URLParam(r, name))
		if convErr != nil {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidTile,
				"tile coordinates must be integers", convErr, map[string]any{"param": name}))
			return
		}
		coords[i] = n
	}

	url, err := h.tiles.URL(layer, coords[0], coords[1], coords[2])
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=3600")
	core.Data(w, r, http.StatusOK, TileResponse{Layer: layer, URL: url})
}

// HandleGetDashboard returns the caller's view state. A new session is
// created empty; POST /v1/dashboard/search or the HTML page loads it.
func (h *APIHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	_, view := resolveView(w, r, h.sessions, h.cookie)
	core.Data(w, r, http.StatusOK, newDashboardResponse(view.Snapshot()))
}

// SearchRequest is the body of POST /v1/dashboard/search.
type SearchRequest struct {
	City string `json:"city" validate:"city"`
}

// HandleSearch runs a search on the caller's view and returns the result.
// A superseded search answers 409 with the state of the newer search.
func (h *APIHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	r, view := resolveView(w, r, h.sessions, h.cookie)

	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := view.Search(r.Context(), req.City); err != nil {
		if errors.Is(err, dashboard.ErrSuperseded) {
			err = types.NewAppError(types.ErrCodeConflictSuperseded, "a newer search replaced this one", err)
		}
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, newDashboardResponse(view.Snapshot()))
}

// SelectDayRequest is the body of POST /v1/dashboard/day.
type SelectDayRequest struct {
	Day *int `json:"day" validate:"required,min=0"`
}

// HandleSelectDay switches the caller's selected day.
func (h *APIHandler) HandleSelectDay(w http.ResponseWriter, r *http.Request) {
	r, view := resolveView(w, r, h.sessions, h.cookie)

	var req SelectDayRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := view.SelectDay(*req.Day); err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, newDashboardResponse(view.Snapshot()))
}

// SelectLayerRequest is the body of POST /v1/dashboard/layer.
type SelectLayerRequest struct {
	Layer string `json:"layer" validate:"required,maplayer"`
}

// HandleSelectLayer switches the caller's map layer.
func (h *APIHandler) HandleSelectLayer(w http.ResponseWriter, r *http.Request) {
	r, view := resolveView(w, r, h.sessions, h.cookie)

	var req SelectLayerRequest
	if !h.decode(w, r, &req) {
		return
	}
	layer, err := types.ParseMapLayer(req.Layer)
	if err == nil {
		err = view.SelectLayer(layer)
	}
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, newDashboardResponse(view.Snapshot()))
}

// decode reads and validates a JSON body, writing the error response on
// failure.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := core.DecodeJSON(w, r, dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	return true
}

// DashboardResponse is the JSON rendition of a view.
type DashboardResponse struct {
	dashboard.State
	LocationName string `json:"location_name,omitempty"`
	Error        string `json:"error,omitempty"`
}

func newDashboardResponse(s dashboard.State) DashboardResponse {
	resp := DashboardResponse{State: s}
	if s.Payload != nil {
		resp.LocationName = s.Payload.LocationName
	}
	if s.LastError != nil {
		resp.Error = "failed to load weather data"
	}
	return resp
}

func parseFloatParam(raw, name string, code types.ErrorCode) (float64, error) {
	if raw == "" {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			name+" is required", nil, map[string]any{"param": name})
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.NewAppErrorWithDetails(code, name+" must be a number", err, map[string]any{"param": name})
	}
	return v, nil
}
