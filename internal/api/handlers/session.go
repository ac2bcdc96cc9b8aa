// Package handlers contains the HTTP handlers of the Sun Forecast dashboard:
// the server-rendered HTML pages and the /v1 JSON API.
package handlers

import (
	"net/http"
	"time"

	"sunforecast/internal/dashboard"
	"sunforecast/internal/types"
)

// SessionStore resolves a viewer's View from its cookie value.
type SessionStore interface {
	GetOrCreate(id string) (string, *dashboard.View, bool)
}

// SessionCookie describes the cookie carrying the session ID.
type SessionCookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// resolveView returns the caller's View, creating a session and setting the
// cookie when the request carries none or an expired one. The session ID is
// added to the request context for logging.
func resolveView(w http.ResponseWriter, r *http.Request, store SessionStore, cookie SessionCookie) (*http.Request, *dashboard.View) {
	var id string
	if c, err := r.Cookie(cookie.Name); err == nil {
		id = c.Value
	}

	id, view, created := store.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     cookie.Name,
			Value:    id,
			Path:     "/",
			MaxAge:   int(cookie.MaxAge.Seconds()),
			HttpOnly: true,
			Secure:   cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	ctx := types.WithSessionID(r.Context(), id)
	logger := types.LoggerFromContext(ctx, nil).With("session_id", id)
	ctx = types.WithLogger(ctx, logger)

	return r.WithContext(ctx), view
}
