package cache

import (
	"context"

	"github.com/jonwraymond/respcache/observe"
)

// Invalidator removes entries by domain concept across one or more stores so
// callers never build tag strings by hand. It holds no state of its own.
type Invalidator struct {
	stores []Cache
	logger observe.Logger
}

// NewInvalidator creates an invalidator over stores. Nil stores are skipped.
func NewInvalidator(logger observe.Logger, stores ...Cache) *Invalidator {
	if logger == nil {
		logger = observe.NewNopLogger()
	}
	kept := make([]Cache, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Invalidator{stores: kept, logger: logger}
}

// InvalidateByTag removes every entry carrying tag in every store and
// returns the total removed.
func (inv *Invalidator) InvalidateByTag(ctx context.Context, tag string) int {
	total := 0
	for _, s := range inv.stores {
		total += s.InvalidateByTag(ctx, tag)
	}
	inv.logger.Info(ctx, "cache invalidated",
		observe.Field{Key: "tag", Value: tag},
		observe.Field{Key: "removed", Value: total},
	)
	return total
}

// InvalidateGame removes entries for a game type. An empty type removes
// every game-scoped entry.
func (inv *Invalidator) InvalidateGame(ctx context.Context, gameType string) int {
	if gameType == "" {
		return inv.InvalidateByTag(ctx, AllGamesTag)
	}
	return inv.InvalidateByTag(ctx, GameTag(gameType))
}

// InvalidateUser removes entries tagged for a user identity.
func (inv *Invalidator) InvalidateUser(ctx context.Context, identity string) int {
	return inv.InvalidateByTag(ctx, UserTag(identity))
}

// ClearAll empties every store and returns the total entries removed.
func (inv *Invalidator) ClearAll(ctx context.Context) int {
	n := 0
	for _, s := range inv.stores {
		n += s.Clear(ctx)
	}
	return n
}
