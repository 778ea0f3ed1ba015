// Package observe provides the telemetry plumbing for the response cache.
//
// It wires OpenTelemetry tracing and metrics, a structured Logger with JSON,
// zap and logrus backends, HTTP middleware that records one span, one set of
// request metrics and one log line per request, and CacheMetrics, which
// turns cache events into counters and gauges.
//
// The package does not import the cache. CacheMetrics satisfies the cache's
// event hooks by method set, and the cache depends on Logger from here.
package observe
