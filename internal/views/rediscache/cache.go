// Package rediscache stores view snapshots in Redis so several server
// processes can serve the same derived views.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "tableside:view:"

// Cache implements views.Cache on a Redis client.
type Cache struct {
	client *redis.Client
	prefix string
}

// New wraps client. An empty prefix uses the default key namespace.
func New(client *redis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Get returns the snapshot stored under key. A missing key is not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value under key. A zero ttl keeps the key until overwritten.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, string(value), ttl).Err()
}
