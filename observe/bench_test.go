package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// BenchmarkLogger_Info measures logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_WithRoute_ThenLog measures route-scoped logging.
func BenchmarkLogger_WithRoute_ThenLog(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	meta := RouteMeta{Name: "balance", Method: "GET", Pattern: "/api/balance/{user}", Pool: "api"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.WithRoute(meta).Info(ctx, "served", Field{Key: "status", Value: 200})
	}
}

// BenchmarkLogger_LevelFiltering measures the cost of filtered-out messages.
func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "dropped", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkZapLogger_Info measures the zap adapter.
func BenchmarkZapLogger_Info(b *testing.B) {
	logger := NewZapLogger(NewZapCore("info", io.Discard))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkMetrics_RecordRequest measures request metric recording.
func BenchmarkMetrics_RecordRequest(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := newMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	meta := RouteMeta{Name: "games"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordRequest(ctx, meta, 200, time.Millisecond, "HIT")
	}
}

// BenchmarkCacheMetrics_Hit measures the hot-path hook cost.
func BenchmarkCacheMetrics_Hit(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := NewCacheMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Hit("api")
	}
}

// BenchmarkMiddleware_Wrap measures per-request instrumentation overhead.
func BenchmarkMiddleware_Wrap(b *testing.B) {
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	metrics, err := newMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	mw := NewMiddleware(newTracer(tp.Tracer("bench")), metrics, NewLoggerWithWriter("info", io.Discard))
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), RouteMeta{Name: "games", Pattern: "/api/games"})
	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// BenchmarkConfig_Validate measures config validation.
func BenchmarkConfig_Validate(b *testing.B) {
	cfg := Config{
		ServiceName: "bench",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info", Backend: "zap"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
