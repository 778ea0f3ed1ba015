package cache

import "time"

// Hooks receives high-signal cache events.
// Implementations must be cheap and non-blocking: the store calls them while
// holding its lock, and the middleware calls them on every request.
type Hooks interface {
	// Hit and Miss report a lookup outcome for a pool.
	Hit(pool string)
	Miss(pool string)

	// Lookup reports how long a middleware lookup took, decode included.
	Lookup(pool string, d time.Duration)

	// Stored reports a write of size bytes.
	Stored(pool string, size int)

	// Evicted reports a removal the caller did not ask for.
	// reason is one of "expired", "capacity", "corrupt".
	Evicted(pool string, reason string)

	// Invalidated reports a tag invalidation and how many keys it removed.
	Invalidated(pool string, tag string, removed int)

	// WarmupFailed reports a producer failure for a key.
	WarmupFailed(pool string, key string, err error)
}

// NopHooks discards every event.
type NopHooks struct{}

func (NopHooks) Hit(string)                         {}
func (NopHooks) Miss(string)                        {}
func (NopHooks) Lookup(string, time.Duration)       {}
func (NopHooks) Stored(string, int)                 {}
func (NopHooks) Evicted(string, string)             {}
func (NopHooks) Invalidated(string, string, int)    {}
func (NopHooks) WarmupFailed(string, string, error) {}

var _ Hooks = NopHooks{}
