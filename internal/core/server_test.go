package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"sunforecast/internal/config"
)

type recordedRequest struct {
	method, endpoint, status string
}

type mockMetricsCollector struct {
	mu       sync.Mutex
	requests []recordedRequest
	flushErr error
	flushed  bool
}

func (m *mockMetricsCollector) RecordRequest(method, endpoint, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{method, endpoint, status})
}

func (m *mockMetricsCollector) Flush(context.Context) error {
	m.flushed = true
	return m.flushErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Server:      config.ServerConfig{RequestTimeout: time.Second},
		Build:       config.BuildInfo{Version: "1.2.3"},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(testConfig(), discardLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestNewServer_RejectsNilDependencies(t *testing.T) {
	if _, err := NewServer(nil, discardLogger()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(testConfig(), nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestNewServer_InitializesValidatorAndRouter(t *testing.T) {
	srv := newTestServer(t)
	if srv.Validator == nil {
		t.Error("expected validator")
	}
	if srv.Router() == nil {
		t.Error("expected router")
	}
}

func TestServer_HandlerCompressesLargeResponses(t *testing.T) {
	srv := newTestServer(t)
	body := strings.Repeat("Lyon ", 400)
	srv.RootRouteRegistrars = []func(chi.Router){func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, body)
		})
	}}
	srv.MountRoutes()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}
	if rec.Body.Len() >= len(body) {
		t.Errorf("compressed body %d bytes, want fewer than %d", rec.Body.Len(), len(body))
	}
}

func TestServer_ShutdownFlushesMetrics(t *testing.T) {
	srv := newTestServer(t)
	m := &mockMetricsCollector{}
	srv.Metrics = m

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !m.flushed {
		t.Error("expected metrics flush on shutdown")
	}
}

func TestServer_ShutdownReportsFlushError(t *testing.T) {
	srv := newTestServer(t)
	srv.Metrics = &mockMetricsCollector{flushErr: errors.New("throttled")}

	if err := srv.Shutdown(context.Background()); err == nil {
		t.Error("expected flush error")
	}
}

func TestServer_ShutdownWithoutMetrics(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
