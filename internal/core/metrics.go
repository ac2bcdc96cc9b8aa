package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"sunforecast/internal/types"
)

// CloudWatchClient abstracts PutMetricData for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// maxDatumsPerPut is the batch size sent per PutMetricData call.
const maxDatumsPerPut = 20

// flushTimeout bounds a flush triggered from the request path.
const flushTimeout = 5 * time.Second

var _ MetricsCollector = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics buffers datums and publishes them in batches.
//
// Metrics emitted:
//   - APILatency, APIRequestCount: Dims {Method, Endpoint, Status}
//   - ExternalAPIFailure: Dims {Provider}
//   - DashboardLoad: Dims {Result}, value is the load duration in ms
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger

	mu     sync.Mutex
	buffer []cwtypes.MetricDatum
	now    func() time.Time
}

// NewCloudWatchMetrics publishes into namespace, or types.MetricNamespace
// when empty.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordRequest records one HTTP request.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(types.DimMethod, method),
		dimension(types.DimEndpoint, endpoint),
		dimension(types.DimStatus, status),
	}
	m.add(
		m.datum(types.MetricAPILatency, float64(duration.Milliseconds()), cwtypes.StandardUnitMilliseconds, dims),
		m.datum(types.MetricAPIRequestCount, 1, cwtypes.StandardUnitCount, dims),
	)
}

// RecordUpstreamFailure matches external.FailureObserver.
func (m *CloudWatchMetrics) RecordUpstreamFailure(provider string, err error) {
	m.logger.Debug("upstream failure recorded", "provider", provider, "error", err)
	m.add(m.datum(types.MetricExternalAPIFailure, 1, cwtypes.StandardUnitCount,
		[]cwtypes.Dimension{dimension(types.DimProvider, provider)}))
}

// RecordDashboardLoad matches dashboard.LoadObserver.
func (m *CloudWatchMetrics) RecordDashboardLoad(_ context.Context, result string, elapsed time.Duration) {
	m.add(m.datum(types.MetricDashboardLoad, float64(elapsed.Milliseconds()), cwtypes.StandardUnitMilliseconds,
		[]cwtypes.Dimension{dimension(types.DimResult, result)}))
}

// Flush publishes every buffered datum. Batches that fail are logged and
// dropped; the first error is returned.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	pending := m.buffer
	m.buffer = nil
	m.mu.Unlock()

	var firstErr error
	for start := 0; start < len(pending); start += maxDatumsPerPut {
		end := min(start+maxDatumsPerPut, len(pending))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			m.logger.Error("failed to publish metrics", "error", err, "datums", end-start)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (m *CloudWatchMetrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			_ = m.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			_ = m.Flush(ctx)
		}
	}
}

// Buffered returns the number of datums awaiting publication.
func (m *CloudWatchMetrics) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

func (m *CloudWatchMetrics) add(datums ...cwtypes.MetricDatum) {
	m.mu.Lock()
	m.buffer = append(m.buffer, datums...)
	full := len(m.buffer) >= maxDatumsPerPut
	m.mu.Unlock()

	if full {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		_ = m.Flush(ctx)
	}
}

func (m *CloudWatchMetrics) datum(name string, value float64, unit cwtypes.StandardUnit, dims []cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(m.now()),
		Dimensions: dims,
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// LogMetrics writes metrics as debug log lines. Used when CloudWatch
// publishing is disabled.
type LogMetrics struct {
	Logger *slog.Logger
}

var _ MetricsCollector = LogMetrics{}

func (m LogMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.Logger.Debug("metric", "name", types.MetricAPILatency,
		"method", method, "endpoint", endpoint, "status", status, "duration_ms", duration.Milliseconds())
}

func (m LogMetrics) RecordUpstreamFailure(provider string, err error) {
	m.Logger.Debug("metric", "name", types.MetricExternalAPIFailure, "provider", provider, "error", err)
}

func (m LogMetrics) RecordDashboardLoad(_ context.Context, result string, elapsed time.Duration) {
	m.Logger.Debug("metric", "name", types.MetricDashboardLoad, "result", result, "duration_ms", elapsed.Milliseconds())
}
