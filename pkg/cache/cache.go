package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache: miss")

// Cache 响应缓存接口
// 只缓存原始字节，序列化由调用方负责
type Cache interface {
	// GetBytes 获取字节数组，未命中返回 ErrMiss
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// SetBytes 设置字节数组，ttl 为 0 时使用默认过期时间
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Close 关闭连接
	Close() error
}

// CacheOptions 缓存选项
type CacheOptions struct {
	// 默认过期时间
	DefaultTTL time.Duration

	// 键前缀
	KeyPrefix string
}

// DefaultOptions 默认缓存选项
func DefaultOptions() *CacheOptions {
	return &CacheOptions{
		DefaultTTL: 5 * time.Minute,
		KeyPrefix:  "wei",
	}
}
