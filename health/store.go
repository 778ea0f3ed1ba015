package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/respcache/cache"
)

// DefaultCapacityThreshold is the fill ratio at which a bounded pool
// reports degraded.
const DefaultCapacityThreshold = 0.9

// StatsSource is anything that reports cache stats. *cache.Store satisfies it.
type StatsSource interface {
	Stats() cache.Stats
}

// StoreChecker reports a cache pool's fill level. A pool at or above the
// threshold is degraded: it still serves, but every write now evicts.
// Unbounded pools are always healthy.
type StoreChecker struct {
	store     StatsSource
	threshold float64
}

// NewStoreChecker creates a checker for store. threshold outside (0, 1]
// selects DefaultCapacityThreshold.
func NewStoreChecker(store StatsSource, threshold float64) *StoreChecker {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultCapacityThreshold
	}
	return &StoreChecker{store: store, threshold: threshold}
}

// Name returns "cache.<pool>".
func (c *StoreChecker) Name() string {
	return "cache." + c.store.Stats().Pool
}

// Check reads the pool stats.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	st := c.store.Stats()
	m := st.Metrics()
	details := map[string]any{
		"entries":       m.Entries,
		"hitRate":       m.HitRate,
		"hits":          m.Hits,
		"misses":        m.Misses,
		"memoryUsageKB": m.MemoryUsageKB,
		"evictions":     st.Evictions,
		"expirations":   st.Expirations,
	}

	if st.Capacity <= 0 {
		return Healthy(fmt.Sprintf("%d entries, unbounded", st.Entries)).WithDetails(details)
	}

	fill := float64(st.Entries) / float64(st.Capacity)
	details["capacity"] = st.Capacity
	details["fill"] = fill

	if fill >= c.threshold {
		return Degraded(fmt.Sprintf("pool %s at %.0f%% of capacity", st.Pool, fill*100)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("pool %s at %.0f%% of capacity", st.Pool, fill*100)).WithDetails(details)
}
