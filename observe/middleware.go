package observe

import (
	"net/http"
	"time"
)

// HeaderCacheStatus is the response header the cache layer sets to HIT or
// MISS. The middleware reads it after the handler runs.
const HeaderCacheStatus = "X-Cache"

// Middleware wraps HTTP handlers with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a handler safe for concurrent use.
//   - Context: the request context passed downstream carries the server span.
//   - Ownership: request and response bodies pass through unmodified.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap instruments next as route meta.
func (m *Middleware) Wrap(next http.Handler, meta RouteMeta) http.Handler {
	logger := m.logger.WithRoute(meta)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := meta
		if meta.Method == "" {
			meta.Method = r.Method
		}
		ctx, span := m.tracer.StartSpan(r.Context(), meta)

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))
		duration := time.Since(start)

		status := sw.statusCode()
		cacheStatus := sw.Header().Get(HeaderCacheStatus)

		m.tracer.EndSpan(span, status, cacheStatus)
		m.metrics.RecordRequest(ctx, meta, status, duration, cacheStatus)

		fields := []Field{
			{Key: "status", Value: status},
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
			{Key: "path", Value: r.URL.Path},
		}
		if cacheStatus != "" {
			fields = append(fields, Field{Key: "cache", Value: cacheStatus})
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(ctx, "request failed", fields...)
		default:
			logger.Debug(ctx, "request served", fields...)
		}
	})
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
