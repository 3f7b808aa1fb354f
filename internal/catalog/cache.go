package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache for product records. Entries expire on
// the configured TTL; a nil cache or client turns every operation into a no-op
// so callers never branch on the presence of Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a product cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func productKey(id string) string {
	return "billing:product:" + id
}

// GetProduct loads a cached product record. It reports whether the key existed.
func (c *Cache) GetProduct(ctx context.Context, id string) (Product, bool, error) {
	if c == nil || c.client == nil || id == "" {
		return Product{}, false, nil
	}
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Product{}, false, nil
		}
		return Product{}, false, err
	}
	var product Product
	if err := json.Unmarshal(data, &product); err != nil {
		return Product{}, false, err
	}
	return product, true, nil
}

// SetProduct stores a product record with the configured TTL.
func (c *Cache) SetProduct(ctx context.Context, product Product) error {
	if c == nil || c.client == nil || product.ID == "" {
		return nil
	}
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(product.ID), data, c.ttl).Err()
}

// Invalidate drops a cached product record.
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	if c == nil || c.client == nil || id == "" {
		return nil
	}
	return c.client.Del(ctx, productKey(id)).Err()
}
