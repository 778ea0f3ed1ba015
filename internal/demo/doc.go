// Package demo provides the sample game catalog and balance ledger that
// respcached serves, and the routes and warmup job that cache them.
package demo
