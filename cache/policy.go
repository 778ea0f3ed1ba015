package cache

import "time"

// Policy configures TTL behavior for a store.
type Policy struct {
	// DefaultTTL is used when a write does not specify one.
	DefaultTTL time.Duration

	// MaxTTL caps every TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the general-purpose pool policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// APIPolicy returns the policy for cached API responses. Balances and game
// results go stale quickly, so entries live for seconds, not minutes.
// DefaultTTL: 30 seconds, MaxTTL: 10 minutes
func APIPolicy() Policy {
	return Policy{
		DefaultTTL: 30 * time.Second,
		MaxTTL:     10 * time.Minute,
	}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
// A policy with no DefaultTTL falls back to one minute so every entry expires.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
