package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap usage ratio that triggers degraded status.
	// Value should be between 0 and 1. Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the heap usage ratio that triggers unhealthy status.
	// Value should be between 0 and 1. Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes. Zero uses the memory obtained
	// from the OS, which only catches runaway growth.
	MaxAlloc uint64

	// read replaces runtime.ReadMemStats in tests.
	read func(*runtime.MemStats)
}

// MemoryChecker checks process heap usage. Cached bodies live on the heap,
// so this is the backstop when pool capacities are set too high.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	if config.read == nil {
		config.read = runtime.ReadMemStats
	}
	return &MemoryChecker{config: config}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check performs the memory health check.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	m.config.read(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	if maxAlloc == 0 {
		return Healthy("memory stats unavailable")
	}

	usage := float64(stats.HeapAlloc) / float64(maxAlloc)
	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"heap_objects":     stats.HeapObjects,
		"max_alloc_bytes":  maxAlloc,
		"usage_percent":    usage * 100,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}

	switch {
	case usage >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", usage*100), ErrCheckFailed).WithDetails(details)
	case usage >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", usage*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", usage*100)).WithDetails(details)
	}
}
