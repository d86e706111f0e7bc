package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// MemoryCache 进程内缓存（BigCache）
// BigCache 只支持全局过期时间，SetBytes 的 ttl 参数被忽略
type MemoryCache struct {
	cache   *bigcache.BigCache
	options *CacheOptions
}

// NewMemoryCache 创建进程内缓存
// maxSizeMB 为 0 表示不限制
func NewMemoryCache(ctx context.Context, maxSizeMB int, opts *CacheOptions) (*MemoryCache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	config := bigcache.DefaultConfig(opts.DefaultTTL)
	config.HardMaxCacheSize = maxSizeMB
	config.Verbose = false
	config.CleanWindow = opts.DefaultTTL

	bc, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}

	return &MemoryCache{cache: bc, options: opts}, nil
}

// GetBytes 获取字节数组
func (c *MemoryCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := c.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrMiss
	}
	return data, err
}

// SetBytes 设置字节数组
func (c *MemoryCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.cache.Set(key, value)
}

// Delete 删除缓存
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	err := c.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Len 当前条目数
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

// Close 关闭缓存
func (c *MemoryCache) Close() error {
	return c.cache.Close()
}
