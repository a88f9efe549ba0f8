package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/rfidscan/config"
	"example.com/rfidscan/internal/scanlog"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// ErrMiss is returned when a key is not cached or caching is disabled
var ErrMiss = errors.New("cache miss")

// SnapshotCache caches scanner snapshots for read requests
type SnapshotCache interface {
	Get(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error)
	Set(ctx context.Context, snap scanlog.Snapshot) error
	Delete(ctx context.Context, account scanlog.Account) error
	Close() error
}

// redisCache implements SnapshotCache on Redis
type redisCache struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
}

// NewRedisCache creates a new Redis-backed snapshot cache. A disabled
// config yields a cache that always misses.
func NewRedisCache(cfg config.RedisConfig) (SnapshotCache, error) {
	if !cfg.Enabled {
		return &redisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &redisCache{client: client, ttl: cfg.TTL, enabled: true}, nil
}

// ScannerKey generates the cache key for an account's snapshot
func ScannerKey(account scanlog.Account) string {
	return fmt.Sprintf("scanner:%s", account)
}

// Get retrieves a cached snapshot
func (c *redisCache) Get(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error) {
	if !c.enabled {
		return scanlog.Snapshot{}, ErrMiss
	}

	data, err := c.client.Get(ctx, ScannerKey(account)).Bytes()
	if err == redis.Nil {
		return scanlog.Snapshot{}, ErrMiss
	}
	if err != nil {
		return scanlog.Snapshot{}, errors.Wrap(err, "failed to get value from Redis")
	}

	var snap scanlog.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return scanlog.Snapshot{}, errors.Wrap(err, "failed to unmarshal cached snapshot")
	}
	return snap, nil
}

// Set stores a snapshot with the configured expiration
func (c *redisCache) Set(ctx context.Context, snap scanlog.Snapshot) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot for caching")
	}

	return errors.Wrap(c.client.Set(ctx, ScannerKey(snap.Account), data, c.ttl).Err(), "failed to set value in Redis")
}

// Delete removes an account's snapshot
func (c *redisCache) Delete(ctx context.Context, account scanlog.Account) error {
	if !c.enabled {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, ScannerKey(account)).Err(), "failed to delete value from Redis")
}

// Close closes the Redis connection
func (c *redisCache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}
