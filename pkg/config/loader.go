package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/viper"

	apperrors "github.com/NethermindEth/wei/pkg/errors"
	"github.com/NethermindEth/wei/pkg/observability"
)

// 默认值
const (
	DefaultAPIURL      = "http://localhost:8000"
	DefaultGraphQLURL  = "https://hub.snapshot.org/graphql"
	DefaultMaxRetries  = 5
	DefaultRetryDelay  = 15 * time.Second
	DefaultPageSize    = 20
	DefaultEnvPrefix   = "WEI"
	DefaultAppName     = "wei"
	defaultHTTPTimeout = 30 * time.Second
)

// LoaderOptions 配置加载选项
type LoaderOptions struct {
	// ConfigPath 配置文件路径，本地模式下可为空
	ConfigPath string
	// AppName Nacos DataID 前缀
	AppName string
	// EnvPrefix 环境变量前缀
	EnvPrefix string
	// RequiredKeys 必需的配置键
	RequiredKeys []string
}

// Loader 配置加载器：文件或 Nacos，再叠加环境变量
type Loader struct {
	manager *Manager
	options LoaderOptions
	log     *log.Helper
}

// NewLoader 创建配置加载器
func NewLoader(opts LoaderOptions, logger log.Logger) *Loader {
	if opts.AppName == "" {
		opts.AppName = DefaultAppName
	}
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = strings.ToUpper(strings.ReplaceAll(opts.AppName, "-", "_"))
	}
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Loader{
		manager: NewManager(logger),
		options: opts,
		log:     log.NewHelper(log.With(logger, "module", "config")),
	}
}

// Manager 底层配置管理器
func (l *Loader) Manager() *Manager {
	return l.manager
}

// Load 加载并校验配置
func (l *Loader) Load() (*Config, error) {
	v := l.manager.Viper()
	setDefaults(v)

	if err := l.manager.LoadConfig(l.options.ConfigPath, l.options.AppName); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	v.SetEnvPrefix(l.options.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// 与 agent 后端部署保持一致的变量名
	_ = v.BindEnv("api.url", l.options.EnvPrefix+"_API_URL")
	_ = v.BindEnv("api.api_key", l.options.EnvPrefix+"_API_KEY")
	_ = v.BindEnv("graphql.url", l.options.EnvPrefix+"_GRAPHQL_URL")

	if err := l.validateRequiredKeys(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.manager.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := applyRetryEnv(&cfg.GraphQL, l.options.EnvPrefix); err != nil {
		return nil, err
	}

	if cfg.ServicesFile != "" {
		services, err := LoadServicesConfig(cfg.ServicesFile)
		if err != nil {
			return nil, err
		}
		services.Apply(&cfg)
		l.log.Infof("applied service endpoints from %s", cfg.ServicesFile)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	l.log.Debugf("config loaded (mode=%s)", l.manager.GetMode())
	return &cfg, nil
}

// Close 关闭配置源
func (l *Loader) Close() error {
	return l.manager.Close()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.timeout", 5*time.Minute)
	v.SetDefault("api.max_retries", -1)
	v.SetDefault("api.retry_delay", time.Second)

	v.SetDefault("graphql.url", DefaultGraphQLURL)
	v.SetDefault("graphql.timeout", defaultHTTPTimeout)
	v.SetDefault("graphql.max_retries", DefaultMaxRetries)
	v.SetDefault("graphql.retry_delay", DefaultRetryDelay)
	v.SetDefault("graphql.rate_limit", 0)
	v.SetDefault("graphql.burst", 1)

	v.SetDefault("cache.driver", CacheDriverMemory)
	v.SetDefault("cache.key_prefix", "wei")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_size_mb", 64)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("pagination.page_size", DefaultPageSize)
	v.SetDefault("pagination.collision_policy", "drop")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	tracing := observability.DefaultTracingConfig(DefaultAppName)
	v.SetDefault("tracing.service_name", tracing.ServiceName)
	v.SetDefault("tracing.service_version", tracing.ServiceVersion)
	v.SetDefault("tracing.environment", tracing.Environment)
	v.SetDefault("tracing.endpoint", tracing.Endpoint)
	v.SetDefault("tracing.protocol", tracing.Protocol)
	v.SetDefault("tracing.sampling_rate", tracing.SamplingRate)
	v.SetDefault("tracing.enabled", tracing.Enabled)
}

// applyRetryEnv 读取重试相关环境变量
// 延迟以毫秒为单位，viper 会把纯数字解析成纳秒，所以单独处理
func applyRetryEnv(cfg *GraphQLConfig, prefix string) error {
	if raw := firstEnv(prefix+"_GRAPHQL_MAX_QUERY_RETRIES", "MAX_QUERY_RETRIES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apperrors.NewConfigError(fmt.Sprintf("invalid max query retries %q", raw))
		}
		cfg.MaxRetries = n
	}
	if raw := firstEnv(prefix+"_GRAPHQL_DELAY_BETWEEN_QUERY_RETRIES", "DELAY_BETWEEN_QUERY_RETRIES"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return apperrors.NewConfigError(fmt.Sprintf("invalid delay between query retries %q", raw))
		}
		cfg.RetryDelay = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// validateRequiredKeys 验证必需的配置键
func (l *Loader) validateRequiredKeys() error {
	var missing []string
	for _, key := range l.options.RequiredKeys {
		if !l.manager.IsSet(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewConfigError(fmt.Sprintf("missing required config keys: %v", missing))
	}
	return nil
}

// Validate 校验配置取值
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.API.URL); err != nil {
		return apperrors.NewConfigError("api.url: " + err.Error())
	}
	if err := ValidateURL(cfg.GraphQL.URL); err != nil {
		return apperrors.NewConfigError("graphql.url: " + err.Error())
	}
	if cfg.Pagination.PageSize <= 0 {
		return apperrors.NewConfigError("pagination.page_size must be positive")
	}
	switch cfg.Pagination.CollisionPolicy {
	case "", "drop", "disambiguate":
	default:
		return apperrors.NewConfigError(fmt.Sprintf("pagination.collision_policy %q must be drop or disambiguate", cfg.Pagination.CollisionPolicy))
	}
	if cfg.Cache.Driver != CacheDriverNone && cfg.Cache.TTL <= 0 {
		return apperrors.NewConfigError("cache.ttl must be positive unless cache.driver is none")
	}
	switch cfg.Cache.Driver {
	case CacheDriverMemory, CacheDriverNone:
	case CacheDriverRedis:
		if err := ValidateNotEmpty(cfg.Cache.Redis.Addr); err != nil {
			return apperrors.NewConfigError("cache.redis.addr: " + err.Error())
		}
	default:
		return apperrors.NewConfigError(fmt.Sprintf("cache.driver %q must be memory, redis or none", cfg.Cache.Driver))
	}
	return nil
}

// ValidateURL 验证 URL 格式
func ValidateURL(value string) error {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return fmt.Errorf("invalid URL format: %q", value)
	}
	return nil
}

// ValidateNotEmpty 验证非空
func ValidateNotEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("value cannot be empty")
	}
	return nil
}
