package observe

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RouteMeta describes an HTTP route for telemetry purposes.
type RouteMeta struct {
	Name    string // Logical route name, e.g. "balance" (optional if Pattern is set)
	Method  string // HTTP method (optional)
	Pattern string // Mux pattern, e.g. "/api/balance/{user}" (optional if Name is set)
	Pool    string // Cache pool serving the route (optional)
}

// RouteID returns the stable identifier used in attributes: the name when
// set, otherwise the pattern.
func (m RouteMeta) RouteID() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Pattern
}

// SpanName returns the deterministic span name for this route.
// Format: "<METHOD> <pattern>", or "route.<name>" without a pattern.
func (m RouteMeta) SpanName() string {
	if m.Pattern == "" {
		return "route." + m.Name
	}
	method := m.Method
	if method == "" {
		method = "HTTP"
	}
	return method + " " + m.Pattern
}

// Validate checks that the route can be identified.
func (m RouteMeta) Validate() error {
	if m.Name == "" && m.Pattern == "" {
		return ErrMissingRouteName
	}
	return nil
}

func (m RouteMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("route.id", m.RouteID()),
	}
	if m.Method != "" {
		attrs = append(attrs, attribute.String("http.request.method", m.Method))
	}
	if m.Pattern != "" {
		attrs = append(attrs, attribute.String("http.route", m.Pattern))
	}
	if m.Pool != "" {
		attrs = append(attrs, attribute.String("cache.pool", m.Pool))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with route-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a server span for a request on route meta.
	StartSpan(ctx context.Context, meta RouteMeta) (context.Context, trace.Span)

	// EndSpan records the response status and cache outcome, then ends the span.
	EndSpan(span trace.Span, status int, cacheStatus string)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta RouteMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndSpan marks 5xx responses as errors. 4xx is the client's fault and
// leaves the span status unset.
func (t *tracerImpl) EndSpan(span trace.Span, status int, cacheStatus string) {
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if cacheStatus != "" {
		span.SetAttributes(attribute.String("cache.status", cacheStatus))
	}
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta RouteMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ int, _ string) {
	span.End()
}
