// Package server assembles the respcached HTTP surface: cached read routes,
// write routes, the cache admin API, health probes and the Prometheus scrape
// endpoint.
package server
