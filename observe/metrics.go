package observe

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-request metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one served request.
	RecordRequest(ctx context.Context, meta RouteMeta, status int, duration time.Duration, cacheStatus string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of served requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"http.server.errors",
		metric.WithDescription("Requests answered with a 5xx status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"http.server.duration_ms",
		metric.WithDescription("Request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta RouteMeta, status int, duration time.Duration, cacheStatus string) {
	attrs := []attribute.KeyValue{
		attribute.String("route.id", meta.RouteID()),
		attribute.Int("http.response.status_code", status),
	}
	if cacheStatus != "" {
		attrs = append(attrs, attribute.String("cache.status", cacheStatus))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if status >= http.StatusInternalServerError {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordRequest(context.Context, RouteMeta, int, time.Duration, string) {}
