package cache

// Stats is a point-in-time snapshot of a store.
type Stats struct {
	Pool    string
	Entries int
	Tags    int

	Hits    uint64
	Misses  uint64
	HitRate float64 // hits/(hits+misses), 0 when no lookups happened

	// MemoryUsage is an estimate in bytes of keys, values, tags and
	// per-entry bookkeeping.
	MemoryUsage int64

	Evictions   uint64 // capacity evictions
	Expirations uint64 // entries removed because their TTL elapsed
	Capacity    int    // MaxEntries, 0 when unbounded
}

// Metrics is the reporting shape exposed per pool.
type Metrics struct {
	Entries       int     `json:"entries"`
	HitRate       float64 `json:"hitRate"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	MemoryUsageKB float64 `json:"memoryUsageKB"`
}

// Metrics converts the snapshot to its reporting shape.
func (s Stats) Metrics() Metrics {
	return Metrics{
		Entries:       s.Entries,
		HitRate:       s.HitRate,
		Hits:          s.Hits,
		Misses:        s.Misses,
		MemoryUsageKB: float64(s.MemoryUsage) / 1024,
	}
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
