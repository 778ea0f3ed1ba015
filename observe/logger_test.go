package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

// TestLogger_IncludesRouteFields verifies route fields are present in log output.
func TestLogger_IncludesRouteFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := RouteMeta{
		Name:    "balance",
		Method:  "GET",
		Pattern: "/api/balance/{user}",
		Pool:    "api",
	}

	logger.WithRoute(meta).Info(context.Background(), "test message")

	entry := decodeLine(t, buf.String())
	want := map[string]string{
		"route.name":    "balance",
		"route.method":  "GET",
		"route.pattern": "/api/balance/{user}",
		"route.pool":    "api",
		"msg":           "test message",
		"level":         "info",
	}
	for k, v := range want {
		if got, ok := entry[k].(string); !ok || got != v {
			t.Errorf("expected %s=%q, got %v", k, v, entry[k])
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

// TestLogger_WithRouteDoesNotMutateParent verifies derived loggers are independent.
func TestLogger_WithRouteDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	_ = logger.WithRoute(RouteMeta{Name: "games"})
	logger.Info(context.Background(), "plain")

	entry := decodeLine(t, buf.String())
	if _, ok := entry["route.name"]; ok {
		t.Errorf("parent logger should not carry route fields, got %v", entry["route.name"])
	}
}

// TestLogger_SensitiveFieldsRedacted verifies payloads and credentials are never logged.
func TestLogger_SensitiveFieldsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "stored",
		Field{Key: "body", Value: `{"balance":100}`},
		Field{Key: "authorization", Value: "Bearer abc"},
		Field{Key: "key", Value: "GET|/api/balance"},
	)

	output := buf.String()
	if strings.Contains(output, "balance\":100") || strings.Contains(output, "Bearer abc") {
		t.Fatalf("sensitive value leaked: %s", output)
	}
	entry := decodeLine(t, output)
	if entry["body"] != redactedValue {
		t.Errorf("expected body redacted, got %v", entry["body"])
	}
	if entry["authorization"] != redactedValue {
		t.Errorf("expected authorization redacted, got %v", entry["authorization"])
	}
	if entry["key"] != "GET|/api/balance" {
		t.Errorf("expected key logged verbatim, got %v", entry["key"])
	}
}

// TestLogger_ErrorValuesRendered verifies errors are logged as their message.
func TestLogger_ErrorValuesRendered(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "decode failed", Field{Key: "error", Value: errors.New("bad frame")})

	entry := decodeLine(t, buf.String())
	if entry["error"] != "bad frame" {
		t.Errorf("expected error='bad frame', got %v", entry["error"])
	}
	if entry["level"] != "error" {
		t.Errorf("expected level=error, got %v", entry["level"])
	}
}

// TestLogger_LevelFiltering verifies messages below the level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		log   func(Logger)
		want  bool
	}{
		{"info", func(l Logger) { l.Debug(context.Background(), "x") }, false},
		{"info", func(l Logger) { l.Info(context.Background(), "x") }, true},
		{"warn", func(l Logger) { l.Info(context.Background(), "x") }, false},
		{"warn", func(l Logger) { l.Warn(context.Background(), "x") }, true},
		{"error", func(l Logger) { l.Warn(context.Background(), "x") }, false},
		{"error", func(l Logger) { l.Error(context.Background(), "x") }, true},
		{"debug", func(l Logger) { l.Debug(context.Background(), "x") }, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.log(NewLoggerWithWriter(tt.level, &buf))
		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("level %s: expected output=%v, got %v", tt.level, tt.want, got)
		}
	}
}

// TestLogger_IncludesTraceIDs verifies span IDs are logged when ctx carries a span.
func TestLogger_IncludesTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Info(ctx, "traced")

	entry := decodeLine(t, buf.String())
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace_id %s, got %v", span.SpanContext().TraceID(), entry["trace_id"])
	}
	if entry["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("expected span_id %s, got %v", span.SpanContext().SpanID(), entry["span_id"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
