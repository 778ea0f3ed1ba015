package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/respcache/observe"
)

// expiryLoop removes expired entries every cleanupEvery until ctx is done.
// Reads already evict lazily; the sweep reclaims keys nobody asks for again.
func (s *Store) expiryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug(ctx, "cache sweep",
					observe.Field{Key: "pool", Value: s.name},
					observe.Field{Key: "expired", Value: n},
				)
			}
		}
	}
}

// Sweep removes every expired entry now and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteExpiredLocked(now)
}
