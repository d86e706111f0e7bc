package config

import (
	"time"

	"github.com/NethermindEth/wei/pkg/observability"
)

// Config wei 客户端运行时配置
type Config struct {
	API          APIConfig                   `mapstructure:"api"`
	GraphQL      GraphQLConfig               `mapstructure:"graphql"`
	Cache        CacheConfig                 `mapstructure:"cache"`
	Pagination   PaginationConfig            `mapstructure:"pagination"`
	Log          LogConfig                   `mapstructure:"log"`
	Tracing      observability.TracingConfig `mapstructure:"tracing"`
	ServicesFile string                      `mapstructure:"services_file"`
}

// APIConfig agent 后端
type APIConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// GraphQLConfig GraphQL hub
type GraphQLConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// RateLimit 每秒请求数，0 表示不限流
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

// CacheConfig GraphQL 响应缓存
type CacheConfig struct {
	// Driver memory、redis 或 none
	Driver    string        `mapstructure:"driver"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	MaxSizeMB int           `mapstructure:"max_size_mb"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis 连接
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PaginationConfig 分页
type PaginationConfig struct {
	PageSize int `mapstructure:"page_size"`
	// CollisionPolicy drop 或 disambiguate
	CollisionPolicy string `mapstructure:"collision_policy"`
}

// LogConfig 日志
type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format json 或 console
	Format string `mapstructure:"format"`
}

// 缓存驱动
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
	CacheDriverNone   = "none"
)
