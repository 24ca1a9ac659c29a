package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/service/logger"
)

const (
	// ListingCache holds serialized listings keyed by asset identifiers
	ListingCache Database = iota
	// AssetCache holds serialized registry assets keyed by asset identifiers
	AssetCache
	// NonceCache holds short-lived login nonces keyed by address
	NonceCache
)

// Database is a logical redis database number
type Database int

// ErrKeyNotFound is returned when a cache key does not exist
type ErrKeyNotFound struct {
	Key string
}

func (e ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key %s not found in cache", e.Key)
}

// Cache is a namespaced redis cache
type Cache struct {
	client *redis.Client
}

// NewCache creates a new redis cache for the given logical database
func NewCache(db Database) *Cache {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:     env.GetString("REDIS_URL"),
		Password: env.GetString("REDIS_PASS"),
		DB:       int(db),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Errorf("failed to connect to redis: %w", err))
	}

	logger.For(nil).Infof("connected to redis db %d", db)
	return &Cache{client: client}
}

// Set stores a value with an expiration
func (c *Cache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value, returning ErrKeyNotFound when absent
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	bs, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrKeyNotFound{Key: key}
		}
		return nil, err
	}
	return bs, nil
}

// Delete removes a key
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close closes the underlying client
func (c *Cache) Close() error {
	return c.client.Close()
}
