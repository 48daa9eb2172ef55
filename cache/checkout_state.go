package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/2eliot/Inefablestore/checkout"
)

// DefaultStateTTL is how long an opted-in checkout selection is remembered
const DefaultStateTTL = 30 * 24 * time.Hour

// CheckoutStateCache stores persisted checkout selections in Redis
type CheckoutStateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Ensure CheckoutStateCache implements checkout.StateBackend
var _ checkout.StateBackend = (*CheckoutStateCache)(nil)

// NewCheckoutStateCache creates a Redis-backed state store; a non-positive ttl uses
// DefaultStateTTL
func NewCheckoutStateCache(client *redis.Client, ttl time.Duration) *CheckoutStateCache {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &CheckoutStateCache{client: client, ttl: ttl}
}

func (c *CheckoutStateCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Set stores data and restarts its TTL
func (c *CheckoutStateCache) Set(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *CheckoutStateCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// NewClient parses a redis:// URL and returns a connected client
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
