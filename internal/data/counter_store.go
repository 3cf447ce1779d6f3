package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// RedisCounterStore keeps breaker state in Redis so every process shares the same circuits.
type RedisCounterStore struct {
	client *redis.Client
	logger *log.Helper
}

// NewRedisCounterStore creates a Redis-backed counter store.
func NewRedisCounterStore(rdb *redis.Client, logger log.Logger) *RedisCounterStore {
	return &RedisCounterStore{
		client: rdb,
		logger: log.NewHelper(logger),
	}
}

// Get returns the value of key. A missing key (redis.Nil) is reported as not found.
func (s *RedisCounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis: failed to get key %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key; a zero ttl keeps it until deleted.
func (s *RedisCounterStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set key %s: %w", key, err)
	}
	return nil
}

// Incr runs INCR, which keeps any existing TTL.
func (s *RedisCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to incr key %s: %w", key, err)
	}
	return n, nil
}

// Decr runs DECR, which keeps any existing TTL.
func (s *RedisCounterStore) Decr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to decr key %s: %w", key, err)
	}
	return n, nil
}

// Expire sets the TTL of key; a missing key is left missing.
func (s *RedisCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to expire key %s: %w", key, err)
	}
	if !ok {
		s.logger.Debugw("msg", "expire on missing key", "key", key)
	}
	return nil
}

// Del deletes keys.
func (s *RedisCounterStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete keys %v: %w", keys, err)
	}
	return nil
}
