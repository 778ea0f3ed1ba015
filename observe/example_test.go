package observe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/respcache/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info", Output: io.Discard},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleConfig_Validate() {
	cfg := observe.Config{
		ServiceName: "respcached",
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "statsd"},
	}

	err := cfg.Validate()
	fmt.Println(errors.Is(err, observe.ErrInvalidMetricsExporter))
	// Output:
	// true
}

func ExampleRouteMeta_SpanName() {
	meta := observe.RouteMeta{Name: "balance", Method: "GET", Pattern: "/api/balance/{user}"}
	fmt.Println(meta.SpanName())
	fmt.Println(meta.RouteID())
	// Output:
	// GET /api/balance/{user}
	// balance
}

func ExampleLogger_WithRoute() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf).
		WithRoute(observe.RouteMeta{Name: "games", Pool: "general"})

	logger.Info(context.Background(), "served", observe.Field{Key: "body", Value: "[...]"})

	var entry map[string]any
	_ = json.Unmarshal(buf.Bytes(), &entry)
	fmt.Println(entry["route.name"], entry["route.pool"], entry["body"])
	// Output:
	// games general [REDACTED]
}

func ExampleMiddleware_Wrap() {
	mw := observe.NewMiddleware(nil, nil, nil)

	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(observe.HeaderCacheStatus, "MISS")
		fmt.Fprint(w, "ok")
	}), observe.RouteMeta{Name: "games", Pattern: "/api/games"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games", nil))
	fmt.Println(rec.Code, rec.Header().Get(observe.HeaderCacheStatus), rec.Body.String())
	// Output:
	// 200 MISS ok
}

func ExampleParseLogLevel() {
	fmt.Println(observe.ParseLogLevel("warn"))
	fmt.Println(observe.ParseLogLevel("unknown"))
	// Output:
	// warn
	// info
}
