package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseCache 两种实现共享的行为
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, err := c.GetBytes(ctx, "gql:missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.SetBytes(ctx, "gql:k", []byte(`{"spaces":[]}`), 0))
	data, err := c.GetBytes(ctx, "gql:k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"spaces":[]}`, string(data))

	require.NoError(t, c.Delete(ctx, "gql:k"))
	_, err = c.GetBytes(ctx, "gql:k")
	assert.ErrorIs(t, err, ErrMiss)

	// 删除不存在的键不是错误
	assert.NoError(t, c.Delete(ctx, "gql:k"))
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(context.Background(), 8, &CacheOptions{DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	exerciseCache(t, c)

	require.NoError(t, c.SetBytes(context.Background(), "a", []byte("1"), 0))
	require.NoError(t, c.SetBytes(context.Background(), "b", []byte("2"), 0))
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCache_DefaultOptions(t *testing.T) {
	c, err := NewMemoryCache(context.Background(), 0, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, DefaultOptions(), c.options)
}

// TestRedisCache 需要本地 Redis，通过 WEI_TEST_REDIS_ADDR 启用
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("WEI_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WEI_TEST_REDIS_ADDR not set")
	}

	c := NewRedisCache(addr, "", 0, &CacheOptions{DefaultTTL: time.Minute, KeyPrefix: "wei-test"})
	defer c.Close()
	require.NoError(t, c.Client().Ping(context.Background()).Err())

	exerciseCache(t, c)
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	c := NewRedisCache("127.0.0.1:0", "", 0, &CacheOptions{KeyPrefix: "wei"})
	defer c.Close()
	assert.Equal(t, "wei:gql:abc", c.makeKey("gql:abc"))

	bare := NewRedisCacheWithClient(c.Client(), &CacheOptions{})
	assert.Equal(t, "gql:abc", bare.makeKey("gql:abc"))
}
