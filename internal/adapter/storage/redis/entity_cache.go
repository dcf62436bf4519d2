package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EntityCache is the distributed tier of the entity cache, backed by Redis.
// It implements cache.Tier.
type EntityCache struct {
	client *goredis.Client
	prefix string
}

// NewEntityCache creates a Redis-backed entity cache tier.
func NewEntityCache(client *goredis.Client) *EntityCache {
	return &EntityCache{
		client: client,
		prefix: "entity:",
	}
}

// Get retrieves a cached entity snapshot by key.
// The second return is false when the key does not exist.
func (c *EntityCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis entity get: %w", err)
	}
	return val, true, nil
}

// Set stores an entity snapshot with TTL.
func (c *EntityCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis entity set: %w", err)
	}
	return nil
}

// Delete removes an entity snapshot.
func (c *EntityCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis entity delete: %w", err)
	}
	return nil
}
