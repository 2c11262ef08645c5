package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// FlagStore records which identifiers are known to carry a chargeback.
type FlagStore interface {
	// AnyFlagged reports whether at least one of keys is set.
	AnyFlagged(ctx context.Context, keys ...string) (bool, error)
	// Flag sets every key with the given ttl.
	Flag(ctx context.Context, ttl time.Duration, keys ...string) error
}

// RedisFlags is the redis-backed FlagStore.
type RedisFlags struct {
	client *redis.Client
}

func NewRedisFlags(client *redis.Client) *RedisFlags {
	return &RedisFlags{client: client}
}

func (f *RedisFlags) AnyFlagged(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	n, err := f.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (f *RedisFlags) Flag(ctx context.Context, ttl time.Duration, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := f.client.TxPipeline()
	for _, key := range keys {
		pipe.Set(ctx, key, 1, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis flag: %w", err)
	}
	return nil
}

// HealthCheck pings the redis server.
func (f *RedisFlags) HealthCheck(ctx context.Context) error {
	if err := f.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close closes the Redis client connection
func (f *RedisFlags) Close() error {
	return f.client.Close()
}
