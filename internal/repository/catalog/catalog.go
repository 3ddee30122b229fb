package catalog

import (
	"context"
	"fmt"

	"marketReco/domain"
	"marketReco/pkg/logger"
)

// ProductSource is the durable store behind the cache.
type ProductSource interface {
	FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
	FindInStock(ctx context.Context) ([]domain.Product, error)
}

// SnapshotCache is the short-lived snapshot layer in front of it.
type SnapshotCache interface {
	GetMany(ctx context.Context, ids []uint64) (map[uint64]domain.Product, []uint64, error)
	SetMany(ctx context.Context, products []domain.Product) error
}

// CachedCatalog reads product state through a redis snapshot cache, falling
// back to postgres for misses. Cache failures are logged and absorbed, the
// catalog answer always comes from somewhere durable.
type CachedCatalog struct {
	source ProductSource
	cache  SnapshotCache
}

func NewCachedCatalog(source ProductSource, cache SnapshotCache) *CachedCatalog {
	return &CachedCatalog{
		source: source,
		cache:  cache,
	}
}

func (c *CachedCatalog) FindByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	if c.cache == nil {
		return c.source.FindByIDs(ctx, ids)
	}

	cached, missing, err := c.cache.GetMany(ctx, ids)
	if err != nil {
		logger.Warn("product cache read failed, falling back to store", "error", err)
		return c.source.FindByIDs(ctx, ids)
	}

	out := make([]domain.Product, 0, len(ids))
	for _, p := range cached {
		out = append(out, p)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.source.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetMany(ctx, fresh); err != nil {
		logger.Warn("product cache write failed", "error", err)
	}

	return append(out, fresh...), nil
}

// FindInStock always hits the store. Stock moves too fast to serve a
// candidate pool from cache.
func (c *CachedCatalog) FindInStock(ctx context.Context) ([]domain.Product, error) {
	return c.source.FindInStock(ctx)
}
