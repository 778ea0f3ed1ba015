package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics turns cache events into OpenTelemetry instruments. Its method
// set matches the cache package's event hooks, so a *CacheMetrics can be
// passed wherever the cache expects hooks.
//
// All methods are safe for concurrent use and never block.
type CacheMetrics struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	stored       metric.Int64Counter
	storedBytes  metric.Int64Counter
	evictions    metric.Int64Counter
	invalidated  metric.Int64Counter
	warmupErrors metric.Int64Counter
	lookup       metric.Float64Histogram
	meter        metric.Meter
}

// PoolGauge is a point-in-time reading of one cache pool.
type PoolGauge struct {
	Pool        string
	Entries     int64
	MemoryBytes int64
	HitRate     float64
}

// NewCacheMetrics creates the cache instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	m := &CacheMetrics{meter: meter}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.hits, "cache.hits", "Lookups answered from the cache", "{lookup}"},
		{&m.misses, "cache.misses", "Lookups not answered from the cache", "{lookup}"},
		{&m.stored, "cache.writes", "Entries written", "{entry}"},
		{&m.storedBytes, "cache.write_bytes", "Bytes written", "By"},
		{&m.evictions, "cache.evictions", "Entries removed by expiry, capacity or corruption", "{entry}"},
		{&m.invalidated, "cache.invalidations", "Entries removed by tag invalidation", "{entry}"},
		{&m.warmupErrors, "cache.warmup.errors", "Warmup producer failures", "{error}"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, err
		}
		*c.dst = ctr
	}

	lookup, err := meter.Float64Histogram("cache.lookup.duration_ms",
		metric.WithDescription("Cache lookup latency including decode"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.lookup = lookup

	return m, nil
}

func poolAttr(pool string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache.pool", pool))
}

// Hit records a cache hit.
func (m *CacheMetrics) Hit(pool string) {
	m.hits.Add(context.Background(), 1, poolAttr(pool))
}

// Miss records a cache miss.
func (m *CacheMetrics) Miss(pool string) {
	m.misses.Add(context.Background(), 1, poolAttr(pool))
}

// Lookup records lookup latency.
func (m *CacheMetrics) Lookup(pool string, d time.Duration) {
	m.lookup.Record(context.Background(), float64(d)/float64(time.Millisecond), poolAttr(pool))
}

// Stored records a write of size bytes.
func (m *CacheMetrics) Stored(pool string, size int) {
	ctx := context.Background()
	m.stored.Add(ctx, 1, poolAttr(pool))
	m.storedBytes.Add(ctx, int64(size), poolAttr(pool))
}

// Evicted records an eviction with its reason.
func (m *CacheMetrics) Evicted(pool string, reason string) {
	m.evictions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache.pool", pool),
		attribute.String("cache.eviction.reason", reason),
	))
}

// Invalidated records the entries removed by a tag invalidation. The tag
// itself is not recorded; user tags would explode cardinality.
func (m *CacheMetrics) Invalidated(pool string, _ string, removed int) {
	if removed == 0 {
		return
	}
	m.invalidated.Add(context.Background(), int64(removed), poolAttr(pool))
}

// WarmupFailed records a warmup producer failure.
func (m *CacheMetrics) WarmupFailed(pool string, _ string, _ error) {
	m.warmupErrors.Add(context.Background(), 1, poolAttr(pool))
}

// ObservePools registers gauges that read pool state from read at
// collection time.
func (m *CacheMetrics) ObservePools(read func() []PoolGauge) error {
	entries, err := m.meter.Int64ObservableGauge("cache.entries",
		metric.WithDescription("Entries currently stored"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}
	memory, err := m.meter.Int64ObservableGauge("cache.memory",
		metric.WithDescription("Estimated memory held by entries"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}
	hitRate, err := m.meter.Float64ObservableGauge("cache.hit_rate",
		metric.WithDescription("Hits over lookups since the last reset"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, g := range read() {
			attrs := metric.WithAttributes(attribute.String("cache.pool", g.Pool))
			o.ObserveInt64(entries, g.Entries, attrs)
			o.ObserveInt64(memory, g.MemoryBytes, attrs)
			o.ObserveFloat64(hitRate, g.HitRate, attrs)
		}
		return nil
	}, entries, memory, hitRate)
	return err
}
