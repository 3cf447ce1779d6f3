package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client with miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisCounterStore_GetSet(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisCounterStore(client, log.DefaultLogger)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "bountybot:circuit:github:state")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "bountybot:circuit:github:state", "OPEN", 0))
	val, ok, err := store.Get(ctx, "bountybot:circuit:github:state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "OPEN", val)
	assert.Zero(t, mr.TTL("bountybot:circuit:github:state"))

	require.NoError(t, store.Set(ctx, "temp", "1", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("temp"))
}

func TestRedisCounterStore_IncrDecrExpire(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisCounterStore(client, log.DefaultLogger)
	ctx := context.Background()
	key := "bountybot:circuit:payments:failures"

	n, err := store.Incr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Expire(ctx, key, 60*time.Second))

	n, err = store.Incr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	// INCR keeps the TTL
	assert.Equal(t, 60*time.Second, mr.TTL(key))

	n, err = store.Decr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The window elapses without a new failure
	mr.FastForward(61 * time.Second)
	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Expire on a missing key is not an error
	assert.NoError(t, store.Expire(ctx, "missing", time.Second))
}

func TestRedisCounterStore_Del(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisCounterStore(client, log.DefaultLogger)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "1", 0))
	require.NoError(t, store.Set(ctx, "b", "2", 0))

	require.NoError(t, store.Del(ctx, "a", "b", "missing"))
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))

	assert.NoError(t, store.Del(ctx))
}

func TestRedisCounterStore_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisCounterStore(client, log.DefaultLogger)
	mr.Close()

	_, _, err := store.Get(context.Background(), "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: failed to get key")

	_, err = store.Incr(context.Background(), "key")
	assert.Error(t, err)
}
