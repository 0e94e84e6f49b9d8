package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client for live game state operations.
type Client struct {
	rdb      *redis.Client
	stateTTL time.Duration
}

// NewClient creates a Redis client from a connection URL. Game state keys
// expire after stateTTL without a write; zero keeps them forever.
func NewClient(redisURL string, stateTTL time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb, stateTTL: stateTTL}, nil
}

// NewClientFromPool wraps an existing redis.Client for use in tests.
func NewClientFromPool(rdb *redis.Client, stateTTL time.Duration) *Client {
	return &Client{rdb: rdb, stateTTL: stateTTL}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw redis client for keyspace notifications.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}

// EnableExpiryEvents turns on expired-key notifications so idle games can be
// reaped as soon as their state key lapses. Managed Redis often forbids
// CONFIG SET; callers should log the error and rely on polling.
func (c *Client) EnableExpiryEvents(ctx context.Context) error {
	return c.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
}
