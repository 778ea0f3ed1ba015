package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/respcache/observe"
)

// Pool names.
const (
	PoolGeneral = "general"
	PoolAPI     = "api"
)

// Default pool capacities.
const (
	DefaultGeneralEntries = 10_000
	DefaultAPIEntries     = 5_000
)

// PoolsConfig configures the process-wide stores.
type PoolsConfig struct {
	General StoreConfig
	API     StoreConfig
}

// DefaultPoolsConfig returns the standard general and api pool settings.
func DefaultPoolsConfig() PoolsConfig {
	return PoolsConfig{
		General: StoreConfig{
			Name:            PoolGeneral,
			Policy:          DefaultPolicy(),
			MaxEntries:      DefaultGeneralEntries,
			CleanupInterval: time.Minute,
		},
		API: StoreConfig{
			Name:            PoolAPI,
			Policy:          APIPolicy(),
			MaxEntries:      DefaultAPIEntries,
			CleanupInterval: 15 * time.Second,
		},
	}
}

// Pools holds one store per pool. Build it once per process and pass it to
// whatever needs a store.
type Pools struct {
	General *Store
	API     *Store
}

// NewPools builds both stores. hooks and logger apply to pools that do not
// set their own.
func NewPools(cfg PoolsConfig, hooks Hooks, logger observe.Logger) *Pools {
	if cfg.General.Name == "" {
		cfg.General.Name = PoolGeneral
	}
	if cfg.API.Name == "" {
		cfg.API.Name = PoolAPI
	}
	for _, sc := range []*StoreConfig{&cfg.General, &cfg.API} {
		if sc.Hooks == nil {
			sc.Hooks = hooks
		}
		if sc.Logger == nil {
			sc.Logger = logger
		}
	}
	if cfg.API.Policy == (Policy{}) {
		cfg.API.Policy = APIPolicy()
	}
	return &Pools{
		General: NewStore(cfg.General),
		API:     NewStore(cfg.API),
	}
}

// All returns the stores in a fixed order.
func (p *Pools) All() []*Store {
	return []*Store{p.General, p.API}
}

// Caches returns the stores as Cache values for an Invalidator.
func (p *Pools) Caches() []Cache {
	return []Cache{p.General, p.API}
}

// Metrics reports every pool keyed by pool name.
func (p *Pools) Metrics() map[string]Metrics {
	out := make(map[string]Metrics, 2)
	for _, s := range p.All() {
		out[s.Name()] = s.Stats().Metrics()
	}
	return out
}

// ClearAll empties every pool and returns the total entries removed.
func (p *Pools) ClearAll(ctx context.Context) int {
	n := 0
	for _, s := range p.All() {
		n += s.Clear(ctx)
	}
	return n
}

// Close stops every pool's sweeper.
func (p *Pools) Close() error {
	for _, s := range p.All() {
		_ = s.Close()
	}
	return nil
}
