package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"runner-service/internal/logging"
)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// New wraps an existing go-redis client.
func New(rdb *goredis.Client) *Client {
	return &Client{rdb: rdb}
}

// NewClient connects to Redis with retry.
func NewClient(ctx context.Context, addr string, log logging.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < 20; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info(ctx, "connected to redis", "addr", addr)
			return &Client{rdb: rdb}, nil
		}
		log.Info(ctx, "waiting for redis", "attempt", i+1, "of", 20)
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

// CacheHash stores data in a hash at key and expires it after ttl.
func (c *Client) CacheHash(ctx context.Context, key string, data map[string]string, ttl time.Duration) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// GetHash returns the hash at key. A missing key yields an empty map.
func (c *Client) GetHash(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
