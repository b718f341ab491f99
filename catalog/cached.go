package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/cache"
	"github.com/iai-group/MovieBot-sub000/types"
)

const cacheNamespace = "lookup:"

// CachedLookup memoises another Lookup by query. Cache failures degrade to a
// direct lookup.
type CachedLookup struct {
	next   Lookup
	cache  cache.Cache[[]types.Item]
	logger *zap.Logger
}

func NewCachedLookup(next Lookup, c cache.Cache[[]types.Item], logger *zap.Logger) *CachedLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLookup{next: next, cache: c, logger: logger.Named("catalog.cache")}
}

func (c *CachedLookup) Lookup(ctx context.Context, q Query) ([]types.Item, error) {
	key := cacheNamespace + q.Key()
	items, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed", zap.Error(err))
	} else if ok {
		c.logger.Debug("Cache hit", zap.Int("items", len(items)))
		return items, nil
	}
	items, err = c.next.Lookup(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, items); err != nil {
		c.logger.Warn("Cache write failed", zap.Error(err))
	}
	return items, nil
}
