package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/sony/gobreaker"

	"github.com/NethermindEth/wei/pkg/cache"
	"github.com/NethermindEth/wei/pkg/clients/agent"
	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	"github.com/NethermindEth/wei/pkg/clients/graphql"
	"github.com/NethermindEth/wei/pkg/clients/httpclient"
	"github.com/NethermindEth/wei/pkg/config"
	"github.com/NethermindEth/wei/pkg/health"
	"github.com/NethermindEth/wei/pkg/pagination"
)

// ProviderSet 依赖注入
var ProviderSet = wire.NewSet(
	NewResponseCache,
	NewClients,
	NewExecutor,
	NewCacheControl,
	NewAgent,
	NewHealthChecker,
	NewApp,
)

// healthSlowThreshold 超过该耗时的依赖标记为 degraded
const healthSlowThreshold = 2 * time.Second

// Clients 上游 HTTP 客户端
type Clients struct {
	GraphQL *httpclient.BaseClient
	Agent   *httpclient.BaseClient
}

// App 客户端运行时，持有全部已装配的组件
type App struct {
	Config  *config.Config
	GraphQL *graphql.Executor
	Agent   *agent.Client
	Health  *health.HealthChecker

	clients *Clients
	logger  log.Logger
}

// NewApp 创建应用
func NewApp(cfg *config.Config, clients *Clients, exec *graphql.Executor, agentClient *agent.Client, checker *health.HealthChecker, logger log.Logger) *App {
	return &App{
		Config:  cfg,
		GraphQL: exec,
		Agent:   agentClient,
		Health:  checker,
		clients: clients,
		logger:  logger,
	}
}

// NewResponseCache 按 cache.driver 创建 GraphQL 响应缓存，none 时返回 nil
func NewResponseCache(cfg *config.Config, logger log.Logger) (cache.Cache, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "app"))
	opts := &cache.CacheOptions{
		DefaultTTL: cfg.Cache.TTL,
		KeyPrefix:  cfg.Cache.KeyPrefix,
	}

	switch cfg.Cache.Driver {
	case config.CacheDriverNone:
		return nil, func() {}, nil
	case config.CacheDriverRedis:
		rc := cache.NewRedisCache(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, opts)
		return rc, closer(helper, "redis cache", rc.Close), nil
	default:
		mc, err := cache.NewMemoryCache(context.Background(), cfg.Cache.MaxSizeMB, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("create memory cache: %w", err)
		}
		return mc, closer(helper, "memory cache", mc.Close), nil
	}
}

// NewClients 创建 GraphQL hub 与 agent 后端的 HTTP 客户端
func NewClients(cfg *config.Config, logger log.Logger) *Clients {
	return &Clients{
		GraphQL: httpclient.NewBaseClient(httpclient.Config{
			ServiceName: config.ServiceGraphQL,
			BaseURL:     cfg.GraphQL.URL,
			Timeout:     cfg.GraphQL.Timeout,
			MaxRetries:  cfg.GraphQL.MaxRetries,
			RetryDelay:  cfg.GraphQL.RetryDelay,
			RateLimit:   cfg.GraphQL.RateLimit,
			Burst:       cfg.GraphQL.Burst,
		}, logger),
		Agent: httpclient.NewBaseClient(httpclient.Config{
			ServiceName: config.ServiceAgent,
			BaseURL:     cfg.API.URL,
			APIKey:      cfg.API.APIKey,
			Timeout:     cfg.API.Timeout,
			MaxRetries:  cfg.API.MaxRetries,
			RetryDelay:  cfg.API.RetryDelay,
		}, logger),
	}
}

// NewExecutor 创建 GraphQL 执行器
func NewExecutor(cfg *config.Config, clients *Clients, respCache cache.Cache, logger log.Logger) *graphql.Executor {
	return graphql.NewExecutor(clients.GraphQL, respCache, cfg.Cache.TTL, logger)
}

// NewCacheControl 创建缓存控制客户端
func NewCacheControl(clients *Clients, logger log.Logger) *cachectl.Client {
	return cachectl.NewClient(clients.Agent, logger)
}

// NewAgent 创建 agent 功能客户端
func NewAgent(clients *Clients, cacheClient *cachectl.Client, logger log.Logger) *agent.Client {
	return agent.NewClient(clients.Agent, cacheClient, logger)
}

// NewHealthChecker 注册全部依赖的健康检查
func NewHealthChecker(exec *graphql.Executor, agentClient *agent.Client, respCache cache.Cache) *health.HealthChecker {
	checker := health.NewHealthChecker()

	checker.Register(health.NewServiceChecker(config.ServiceAgent, agentClient.HealthCheck, healthSlowThreshold))
	checker.Register(health.NewServiceChecker(config.ServiceGraphQL, func(ctx context.Context) error {
		_, err := exec.FetchSpaces(ctx, graphql.SpacePage{First: 1}, graphql.NetworkOnly)
		return err
	}, healthSlowThreshold))

	if rc, ok := respCache.(*cache.RedisCache); ok {
		checker.Register(health.NewRedisChecker("redis", rc.Client()))
	}

	return checker
}

// ProposalController 创建提案分页控制器，spaceID 为空时不过滤
func (a *App) ProposalController(spaceID string, pageSize int) *pagination.Controller[graphql.Proposal] {
	return pagination.NewController(graphql.ProposalPages(a.GraphQL), a.paginationOptions("proposals", spaceID, pageSize), a.logger)
}

// SpaceController 创建 space 分页控制器
func (a *App) SpaceController(pageSize int) *pagination.Controller[graphql.Space] {
	return pagination.NewController(graphql.SpacePages(a.GraphQL), a.paginationOptions("spaces", "", pageSize), a.logger)
}

func (a *App) paginationOptions(name, filter string, pageSize int) pagination.Options {
	if pageSize <= 0 {
		pageSize = a.Config.Pagination.PageSize
	}
	// 策略名称已在配置加载时校验
	policy, _ := pagination.ParseCollisionPolicy(a.Config.Pagination.CollisionPolicy)
	return pagination.Options{
		Name:     name,
		PageSize: pageSize,
		Policy:   policy,
		Filter:   filter,
	}
}

// BreakerStats 熔断器状态
type BreakerStats struct {
	Service             string `json:"service"`
	Endpoint            string `json:"endpoint"`
	State               string `json:"state"`
	Requests            uint32 `json:"requests"`
	TotalFailures       uint32 `json:"total_failures"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// Breakers 返回全部上游客户端的熔断器状态
func (a *App) Breakers() []BreakerStats {
	stats := make([]BreakerStats, 0, 2)
	for _, c := range []*httpclient.BaseClient{a.clients.GraphQL, a.clients.Agent} {
		s := breakerStats(c.GetServiceName(), c.GetCircuitBreakerState(), c.CircuitBreakerCounts())
		s.Endpoint = c.GetBaseURL()
		stats = append(stats, s)
	}
	return stats
}

func breakerStats(service string, state gobreaker.State, counts gobreaker.Counts) BreakerStats {
	return BreakerStats{
		Service:             service,
		State:               state.String(),
		Requests:            counts.Requests,
		TotalFailures:       counts.TotalFailures,
		ConsecutiveFailures: counts.ConsecutiveFailures,
	}
}

func closer(helper *log.Helper, name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			helper.Warnf("close %s: %v", name, err)
		}
	}
}
