package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketReco/domain"

	"github.com/redis/go-redis/v9"
)

type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
	}
}

func productKey(id uint64) string {
	return fmt.Sprintf("product:snapshot:%d", id)
}

// GetMany returns cached products and the ids that were not found. Cache
// errors degrade to a full miss, they never fail the caller.
func (c *ProductCache) GetMany(ctx context.Context, ids []uint64) (map[uint64]domain.Product, []uint64, error) {
	if len(ids) == 0 {
		return map[uint64]domain.Product{}, nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, ids, fmt.Errorf("failed to mget product snapshots: %w", err)
	}

	found := make(map[uint64]domain.Product, len(ids))
	var missing []uint64

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}

		var p domain.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = p
	}

	return found, missing, nil
}

func (c *ProductCache) SetMany(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, p := range products {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal product %d: %w", p.ID, err)
		}
		pipe.Set(ctx, productKey(p.ID), raw, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache product snapshots: %w", err)
	}

	return nil
}
