// Package external provides the anti-corruption layer between the dashboard
// and the OpenWeatherMap APIs. All outbound HTTP calls are routed through the
// BaseClient, which enforces circuit breaking, trace propagation, and error
// mapping. Calls are never retried: a failed lookup surfaces to the viewer as
// a load failure.
package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"sunforecast/internal/types"

	"github.com/sony/gobreaker/v2"
)

// FailureObserver is notified of every upstream call that the breaker counts
// as failed. The metrics collector uses it to publish upstream failure counts.
type FailureObserver func(provider string, err error)

// BaseClient wraps an *http.Client and a circuit breaker so that every
// OpenWeatherMap client shares the same header injection and error mapping.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
	observer  FailureObserver
}

// BaseClientOption is a functional option for configuring a BaseClient.
type BaseClientOption func(*BaseClient)

// WithFailureObserver registers fn to be called on each failed upstream call.
func WithFailureObserver(fn FailureObserver) BaseClientOption {
	return func(c *BaseClient) {
		c.observer = fn
	}
}

// NewBaseClient creates a BaseClient with the given http client, circuit
// breaker name, and user agent string.
func NewBaseClient(
	httpClient *http.Client,
	breakerName string,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return NewBaseClientWithBreaker(httpClient, cb, userAgent, opts...)
}

// NewBaseClientWithBreaker creates a BaseClient with a caller-provided circuit
// breaker. Tests use it to trip the breaker after fewer failures.
func NewBaseClientWithBreaker(
	httpClient *http.Client,
	breaker *gobreaker.CircuitBreaker[*http.Response],
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	bc := &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		userAgent: userAgent,
	}

	for _, opt := range opts {
		opt(bc)
	}

	return bc
}

// Name returns the circuit breaker name, which doubles as the provider label
// in logs and metrics.
func (c *BaseClient) Name() string {
	return c.breaker.Name()
}

// State returns the current circuit breaker state.
func (c *BaseClient) State() gobreaker.State {
	return c.breaker.State()
}

// Do executes the HTTP request with:
//  1. Trace ID injection (X-B3-TraceId from context)
//  2. User-Agent header injection
//  3. Circuit breaker wrapping
//  4. Error mapping to types.AppError
//
// 2xx, 3xx and 4xx responses other than 429 are returned as-is and the caller
// must close the body. 429, 5xx, transport errors and an open breaker return
// a *types.AppError and a nil response.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if traceID := types.GetRequestID(req.Context()); traceID != "" {
		req.Header.Set("X-B3-TraceId", traceID)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		if r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned 429")
		}
		return r, nil
	})
	if err == nil {
		return resp, nil
	}

	if c.observer != nil {
		c.observer(c.breaker.Name(), err)
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
		resp.Body.Close()
	}

	return nil, c.mapError(status, err)
}

// mapError translates HTTP-level failures into domain-level AppErrors.
func (c *BaseClient) mapError(status int, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; upstream service unavailable",
			err,
		)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			"upstream rate limit exceeded",
			err,
		)
	case status >= 500:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d", status),
			err,
			map[string]any{"status": status},
		)
	}

	// Network error, DNS failure, deadline exceeded.
	return types.NewAppError(
		types.ErrCodeUpstreamUnavailable,
		"upstream request failed",
		err,
	)
}
