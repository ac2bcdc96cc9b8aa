package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"sunforecast/internal/types"
)

func newRoutedServer(t *testing.T, root, v1 func(chi.Router)) *Server {
	t.Helper()
	srv := newTestServer(t)
	if root != nil {
		srv.RootRouteRegistrars = append(srv.RootRouteRegistrars, root)
	}
	if v1 != nil {
		srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, v1)
	}
	srv.MountRoutes()
	return srv
}

func TestMountRoutes_HealthEndpoint(t *testing.T) {
	srv := newRoutedServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMountRoutes_RegistrarsMounted(t *testing.T) {
	srv := newRoutedServer(t,
		func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
		},
		func(r chi.Router) {
			r.Get("/geocode", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
		},
	)

	cases := map[string]int{
		"/":           http.StatusTeapot,
		"/v1/geocode": http.StatusAccepted,
		"/geocode":    http.StatusNotFound,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestMountRoutes_SecurityHeaders(t *testing.T) {
	srv := newRoutedServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestMountRoutes_CORSOnlyOnV1(t *testing.T) {
	srv := newRoutedServer(t,
		func(r chi.Router) { r.Get("/", func(http.ResponseWriter, *http.Request) {}) },
		func(r chi.Router) { r.Get("/dashboard", func(http.ResponseWriter, *http.Request) {}) },
	)

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected CORS header on /v1, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://example.org")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("dashboard page must not carry CORS headers")
	}
}

func TestMountRoutes_RequestScopedLoggerAndID(t *testing.T) {
	var gotID string
	var hasLogger bool
	srv := newRoutedServer(t, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			gotID = types.GetRequestID(r.Context())
			hasLogger = types.LoggerFromContext(r.Context(), nil) != nil
		})
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if gotID != "req-42" {
		t.Errorf("request id = %q, want req-42", gotID)
	}
	if !hasLogger {
		t.Error("expected logger in context")
	}
	if rec.Header().Get("X-Request-Id") != "req-42" {
		t.Error("expected request id echoed")
	}
}

func TestMountRoutes_ContextDeadlineApplied(t *testing.T) {
	var deadline time.Time
	var ok bool
	srv := newRoutedServer(t, func(r chi.Router) {
		r.Get("/", func(_ http.ResponseWriter, r *http.Request) {
			deadline, ok = r.Context().Deadline()
		})
	}, nil)

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("expected a deadline")
	}
	if time.Until(deadline) > time.Second {
		t.Errorf("deadline %v exceeds configured timeout", time.Until(deadline))
	}
}

func TestMountRoutes_MetricsUseRoutePattern(t *testing.T) {
	m := &mockMetricsCollector{}
	srv := newTestServer(t)
	srv.Metrics = m
	srv.V1RouteRegistrars = []func(chi.Router){func(r chi.Router) {
		r.Get("/tiles/{layer}/{z}/{x}/{y}", func(http.ResponseWriter, *http.Request) {})
	}}
	srv.MountRoutes()

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/tiles/wind/8/128/97", nil))

	if len(m.requests) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(m.requests))
	}
	got := m.requests[0]
	if got.endpoint != "/v1/tiles/{layer}/{z}/{x}/{y}" || got.status != "200" || got.method != http.MethodGet {
		t.Errorf("recorded %+v", got)
	}
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	var id string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id = types.GetRequestID(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(id) != 32 {
		t.Errorf("generated id %q, want 32 hex chars", id)
	}
	if rec.Header().Get("X-Request-Id") != id {
		t.Error("response header does not match context id")
	}
}

func TestContextTimeoutMiddleware_Cancels(t *testing.T) {
	var err error
	h := ContextTimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		err = r.Context().Err()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
