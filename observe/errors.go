package observe

import (
	"errors"

	"github.com/jonwraymond/respcache/observe/exporters"
)

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSamplePct indicates Tracing.SamplePct is not in [0.0, 1.0].
	ErrInvalidSamplePct = errors.New("observe: sample percentage must be between 0.0 and 1.0")

	// ErrInvalidTracingExporter indicates an unknown tracing exporter name.
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")

	// ErrInvalidMetricsExporter indicates an unknown metrics exporter name.
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")

	// ErrInvalidLogBackend indicates an unknown logging backend.
	ErrInvalidLogBackend = errors.New("observe: invalid log backend")
)

// Runtime errors.
var (
	// ErrNilObserver indicates a nil Observer was provided.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingRouteName indicates RouteMeta has neither a name nor a pattern.
	ErrMissingRouteName = errors.New("observe: route name or pattern is required")
)

// ErrEndpointNotConfigured indicates a required OTLP endpoint is not set.
var ErrEndpointNotConfigured = exporters.ErrEndpointNotConfigured

// Validation constants.
const (
	// MinSamplePct is the minimum valid sampling percentage.
	MinSamplePct = 0.0
	// MaxSamplePct is the maximum valid sampling percentage.
	MaxSamplePct = 1.0
)

// ValidTracingExporters lists valid tracing exporter names.
var ValidTracingExporters = []string{"otlp", "stdout", "none", ""}

// ValidMetricsExporters lists valid metrics exporter names.
var ValidMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}

// ValidLogLevels lists valid log level names.
var ValidLogLevels = []string{"debug", "info", "warn", "error", ""}

// ValidLogBackends lists valid logging backends.
var ValidLogBackends = []string{"json", "zap", "logrus", ""}

// RedactedFields lists field keys that are automatically redacted in logs.
// Cached payloads and credentials never reach log output.
var RedactedFields = []string{
	"value",
	"body",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"authorization",
	"credential",
}

var redactedSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(RedactedFields))
	for _, k := range RedactedFields {
		m[k] = struct{}{}
	}
	return m
}()

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	_, ok := redactedSet[key]
	return ok
}

// redactedValue is what a redacted field is logged as.
const redactedValue = "[REDACTED]"
