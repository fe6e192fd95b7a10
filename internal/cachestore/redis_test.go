package cachestore

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cache, err := NewRedisCache(mr.Host(), port, "", 0, logrus.NewEntry(log))
	require.NoError(t, err)
	return mr, cache
}

func TestRedisCacheSetAndGet(t *testing.T) {
	mr, cache := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))

	val, found, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)
}

func TestRedisCacheGetMissing(t *testing.T) {
	mr, cache := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	_, found, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheDelete(t *testing.T) {
	mr, cache := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "k"))

	_, found, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheRespectsTTL(t *testing.T) {
	mr, cache := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, found, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
