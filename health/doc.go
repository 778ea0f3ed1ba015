// Package health reports whether the response cache can serve traffic.
//
// A Checker reports one component. StoreChecker watches a cache pool's fill
// level and MemoryChecker the process heap. An Aggregator runs every
// registered checker concurrently under one timeout and reports the worst
// status.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness), /readyz (readiness, degraded counts as
// ready), /health (JSON details) and /health/{name}.
package health
