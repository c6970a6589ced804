package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the redis client. A nil inner client means redis is not
// available and every operation degrades to a miss/no-op.
type Cache struct {
	client *redis.Client
}

func NewCache(address string) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: address,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Println("Redis not available. Running without cache.")
		return &Cache{client: nil}
	}

	log.Println("Redis connected successfully.")
	return &Cache{client: client}
}

// NewCacheWithClient is used by tests to back the cache with miniredis.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get unmarshals the cached JSON value into dest. Returns found=false on
// miss, error, or when redis is down.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// GetVersion returns the current version counter for a key (0 if unset).
// List caches embed this counter in their cache key, so bumping the counter
// invalidates every page at once.
func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if c.client == nil {
		return 0
	}
	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		log.Printf("[CACHE ERROR] failed to bump version key %s: %v", key, err)
	}
}

// StoreToken records a live session token for the auth middleware.
func (c *Cache) StoreToken(ctx context.Context, token string, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, "token:"+token, "1", ttl).Err()
}

func (c *Cache) TokenExists(ctx context.Context, token string) bool {
	if c.client == nil {
		// no redis, fall back to pure JWT validation
		return true
	}
	exists, err := c.client.Exists(ctx, "token:"+token).Result()
	return err == nil && exists > 0
}

func (c *Cache) DeleteToken(ctx context.Context, token string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, "token:"+token).Err()
}
