// Package cache provides an in-process response cache for read handlers.
//
// A Store holds opaque values with a per-entry TTL and a tag index. Tags let
// callers drop every entry tied to a user or a game type in one call,
// through an Invalidator. A KeyGenerator turns a request into a bounded key,
// and Middleware wraps an http.Handler so repeated GETs are answered from a
// Store. A Warmer fills a Store ahead of demand.
//
// The store is process-local. Nothing is shared across processes or kept
// across restarts.
package cache
