package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// structuredLogger writes one JSON object per line.
type structuredLogger struct {
	level     LogLevel
	mu        *sync.Mutex // shared by every logger derived via WithRoute
	writer    io.Writer
	baseAttrs map[string]any
}

// NewLogger creates a new structured logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level:     ParseLogLevel(level),
		mu:        &sync.Mutex{},
		writer:    w,
		baseAttrs: make(map[string]any),
	}
}

// WithRoute returns a logger with route context attached.
func (l *structuredLogger) WithRoute(meta RouteMeta) Logger {
	attrs := make(map[string]any, len(l.baseAttrs)+4)
	for k, v := range l.baseAttrs {
		attrs[k] = v
	}
	for k, v := range routeAttrs(meta) {
		attrs[k] = v
	}

	return &structuredLogger{
		level:     l.level,
		mu:        l.mu,
		writer:    l.writer,
		baseAttrs: attrs,
	}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.baseAttrs)+len(fields)+5)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	for k, v := range l.baseAttrs {
		entry[k] = v
	}
	for k, v := range spanAttrs(ctx) {
		entry[k] = v
	}
	for _, f := range fields {
		entry[f.Key] = fieldValue(f)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // Silently drop malformed log entries
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.writer.Write(data)
}

// routeAttrs returns the base attributes every backend attaches for meta.
func routeAttrs(meta RouteMeta) map[string]any {
	attrs := map[string]any{"route.name": meta.RouteID()}
	if meta.Method != "" {
		attrs["route.method"] = meta.Method
	}
	if meta.Pattern != "" {
		attrs["route.pattern"] = meta.Pattern
	}
	if meta.Pool != "" {
		attrs["route.pool"] = meta.Pool
	}
	return attrs
}

// spanAttrs returns trace_id and span_id when ctx carries a valid span.
func spanAttrs(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return map[string]any{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}

// fieldValue applies redaction and renders errors as strings.
func fieldValue(f Field) any {
	if isRedactedField(f.Key) {
		return redactedValue
	}
	if err, ok := f.Value.(error); ok && err != nil {
		return err.Error()
	}
	return f.Value
}

var _ Logger = (*structuredLogger)(nil)
