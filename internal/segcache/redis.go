package segcache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "audit:last_segment:"

// Redis is a Store backed by a shared Redis instance, for deployments
// running more than one replica behind a load balancer. Entries carry no
// TTL, matching the in-memory store's no-expiry contract.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store from a redis:// URL.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Put records segmentID as the latest segment for callerKey.
func (r *Redis) Put(ctx context.Context, callerKey, segmentID string) error {
	return r.client.Set(ctx, redisKeyPrefix+callerKey, segmentID, 0).Err()
}

// Get returns the latest segment id for callerKey.
func (r *Redis) Get(ctx context.Context, callerKey string) (string, bool, error) {
	id, err := r.client.Get(ctx, redisKeyPrefix+callerKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Ping verifies connectivity at startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
