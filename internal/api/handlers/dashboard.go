package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sunforecast/internal/dashboard"
	"sunforecast/internal/tiles"
	"sunforecast/internal/types"
)

// PagePresenter turns view state into template data.
type PagePresenter interface {
	Present(s dashboard.State) (dashboard.Page, error)
}

// PageRenderer writes a Page as HTML.
type PageRenderer interface {
	Render(w io.Writer, page dashboard.Page) error
}

// defaultInitialLoadTimeout bounds the background default-city load of a new
// session, which outlives the request that started it.
const defaultInitialLoadTimeout = 20 * time.Second

// DashboardHandler serves the HTML dashboard. Commands are plain form posts
// answered with 303 See Other back to the page.
type DashboardHandler struct {
	sessions  SessionStore
	presenter PagePresenter
	renderer  PageRenderer
	cookie    SessionCookie
	logger    *slog.Logger

	// InitialLoadTimeout overrides defaultInitialLoadTimeout when positive.
	InitialLoadTimeout time.Duration
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	sessions SessionStore,
	presenter PagePresenter,
	renderer PageRenderer,
	cookie SessionCookie,
	logger *slog.Logger,
) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		sessions:  sessions,
		presenter: presenter,
		renderer:  renderer,
		cookie:    cookie,
		logger:    logger,
	}
}

// RegisterRoutes mounts the pages at the router root.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandlePage)
	r.Post("/search", h.HandleSearch)
	r.Post("/day", h.HandleSelectDay)
	r.Post("/layer", h.HandleSelectLayer)
	r.Get(tiles.PlaceholderPath, h.HandlePlaceholder)
}

// HandlePage renders the dashboard. A session with no forecast and no load
// running starts loading the default city in the background and sees the
// loading screen, which refreshes itself until the forecast is in. Reloading
// after a failed first load retries it.
func (h *DashboardHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	r, view := resolveView(w, r, h.sessions, h.cookie)
	h.startInitialLoad(r.Context(), view)
	h.render(w, r, view)
}

func (h *DashboardHandler) startInitialLoad(ctx context.Context, view *dashboard.View) {
	timeout := h.InitialLoadTimeout
	if timeout <= 0 {
		timeout = defaultInitialLoadTimeout
	}
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	done := view.StartDefaultIfIdle(loadCtx)
	if done == nil {
		cancel()
		return
	}

	go func() {
		defer cancel()
		if err := <-done; err != nil && !errors.Is(err, dashboard.ErrSuperseded) {
			types.LoggerFromContext(ctx, h.logger).Warn("initial load failed", "error", err)
		}
	}()
}

// HandleSearch geocodes the submitted city and loads its forecast. Failures
// are recorded on the view and shown as the error banner.
func (h *DashboardHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	r, view := resolveView(w, r, h.sessions, h.cookie)
	if err := r.ParseForm(); err != nil {
		h.pageError(w, r, types.NewAppError(types.ErrCodeValidationInvalidForm, "malformed form", err))
		return
	}

	err := view.Search(r.Context(), r.PostFormValue("city"))
	h.logCommandError(r, "search", err)
	redirectHome(w, r)
}

// HandleSelectDay switches the displayed day.
func (h *DashboardHandler) HandleSelectDay(w http.ResponseWriter, r *http.Request) {
	r, view := resolveView(w, r, h.sessions, h.cookie)
	index, err := strconv.Atoi(r.PostFormValue("index"))
	if err != nil {
		h.pageError(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidDay, "day index must be an integer", err,
			map[string]any{"index": r.PostFormValue("index")}))
		return
	}
	if err := view.SelectDay(index); err != nil {
		h.pageError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// HandleSelectLayer switches the map overlay.
func (h *DashboardHandler) HandleSelectLayer(w http.ResponseWriter, r *http.Request) {
	r, view := resolveView(w, r, h.sessions, h.cookie)
	layer, err := types.ParseMapLayer(r.PostFormValue("layer"))
	if err == nil {
		err = view.SelectLayer(layer)
	}
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	redirectHome(w, r)
}

// HandlePlaceholder serves the image shown when a tile fails to load.
func (h *DashboardHandler) HandlePlaceholder(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.WriteString(w, tiles.PlaceholderSVG)
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, view *dashboard.View) {
	page, err := h.presenter.Present(view.Snapshot())
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.Render(w, page); err != nil {
		h.pageError(w, r, types.NewAppError(types.ErrCodeInternalRender, "failed to render page", err))
	}
}

func (h *DashboardHandler) logCommandError(r *http.Request, command string, err error) {
	if err == nil || errors.Is(err, dashboard.ErrSuperseded) {
		return
	}
	types.LoggerFromContext(r.Context(), h.logger).Info("dashboard command failed", "command", command, "error", err)
}

// pageError answers a failed page request with plain text. Validation
// errors keep their 4xx status; anything else is a 500.
func (h *DashboardHandler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Erreur interne"

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		if status < http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	log := types.LoggerFromContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		log.Error("dashboard request failed", "error", err)
	} else {
		log.Warn("dashboard request rejected", "error", err)
	}
	http.Error(w, message, status)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
