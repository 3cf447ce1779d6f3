package biz

import (
	"context"
	"time"

	"BountyBot/internal/conf"
	"BountyBot/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// CounterStore is the key-value capability a CircuitBreaker persists its state in.
// Breakers built over the same store with the same name share one circuit.
type CounterStore interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key. A zero ttl keeps the key until it is deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr adds one to the integer stored at key, creating it at 0 first.
	Incr(ctx context.Context, key string) (int64, error)
	// Decr subtracts one from the integer stored at key, creating it at 0 first.
	Decr(ctx context.Context, key string) (int64, error)
	// Expire sets the time to live of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Del removes keys; missing keys are ignored.
	Del(ctx context.Context, keys ...string) error
}

// NewCounterStore selects the breaker backend from configuration.
// Without a Redis client the in-memory store is used, which only shares state within one process.
func NewCounterStore(c *conf.Breaker, rdb *redis.Client, logger log.Logger) CounterStore {
	helper := log.NewHelper(logger)

	if c != nil && c.Store == conf.StoreMemory {
		helper.Infow("msg", "using in-memory breaker store", "store", conf.StoreMemory)
		return data.NewMemoryCounterStore(data.DefaultMemoryStoreSize)
	}
	if rdb == nil {
		helper.Warnw("msg", "redis unavailable, falling back to in-memory breaker store")
		return data.NewMemoryCounterStore(data.DefaultMemoryStoreSize)
	}
	return data.NewRedisCounterStore(rdb, logger)
}
