package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	apperrors "github.com/NethermindEth/wei/pkg/errors"
	"github.com/NethermindEth/wei/pkg/monitoring"
	"github.com/NethermindEth/wei/pkg/observability"
	"github.com/NethermindEth/wei/pkg/resilience"
)

// HeaderAPIKey agent 后端的鉴权头
const HeaderAPIKey = "x-api-key"

// BaseClient 上游服务基础客户端
type BaseClient struct {
	serviceName    string
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	limiter        *rate.Limiter
	retryPolicy    resilience.RetryPolicy
	log            *log.Helper
}

// Config 基础客户端配置
type Config struct {
	ServiceName string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	// MaxRetries 为负数表示不重试
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// RateLimit 每秒请求数，0 表示不限流
	RateLimit float64
	Burst     int
	// HTTPClient 可选，测试时注入
	HTTPClient *http.Client
}

// NewBaseClient 创建基础客户端
func NewBaseClient(config Config, logger log.Logger) *BaseClient {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 100 * time.Millisecond
	}
	if config.MaxRetryDelay == 0 {
		config.MaxRetryDelay = 5 * time.Second
	}
	if config.MaxRetryDelay < config.RetryDelay {
		config.MaxRetryDelay = config.RetryDelay
	}
	if logger == nil {
		logger = log.DefaultLogger
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	client := &BaseClient{
		serviceName: config.ServiceName,
		baseURL:     config.BaseURL,
		apiKey:      config.APIKey,
		httpClient:  httpClient,
		log:         log.NewHelper(log.With(logger, "module", "httpclient", "service", config.ServiceName)),
	}

	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	client.retryPolicy = resilience.RetryPolicy{
		MaxRetries:        config.MaxRetries,
		InitialDelay:      config.RetryDelay,
		MaxDelay:          config.MaxRetryDelay,
		BackoffMultiplier: 2.0,
		RetryableErrors:   resilience.IsRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			monitoring.RequestRetries.WithLabelValues(client.serviceName).Inc()
			client.log.Warnf("attempt %d failed: %v, retrying in %s", attempt, err, delay)
		},
	}

	client.circuitBreaker = client.createCircuitBreaker()

	return client
}

// createCircuitBreaker 创建熔断器
func (c *BaseClient) createCircuitBreaker() *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        c.serviceName,
		MaxRequests: 3,                // 半开状态下最大请求数
		Interval:    10 * time.Second, // 统计周期
		Timeout:     30 * time.Second, // 熔断器开启后等待时间
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 失败率 >= 60% 且请求数 >= 5 时触发熔断
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// 4xx（除 429）是调用方问题，不计入熔断失败
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			status := apperrors.StatusOf(err)
			return status >= 400 && status < 500 && status != http.StatusTooManyRequests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// Request 一次上游调用
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	Header http.Header
}

// Get 发送GET请求
func (c *BaseClient) Get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, result)
}

// Post 发送POST请求
func (c *BaseClient) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, result)
}

// Do 执行请求：限流、熔断、重试，结果按 JSON 解码到 result
func (c *BaseClient) Do(ctx context.Context, req Request, result interface{}) error {
	var reqBody []byte
	if req.Body != nil {
		var err error
		reqBody, err = json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	ctx, span := observability.StartSpan(ctx, c.serviceName+" "+req.Method+" "+req.Path,
		attribute.String("http.method", req.Method),
		attribute.String("http.url", target),
		attribute.String("peer.service", c.serviceName),
	)
	defer span.End()

	var respBody []byte
	err := resilience.Retry(ctx, c.retryPolicy, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		response, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doHTTPCall(ctx, req, target, reqBody)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return apperrors.NewCircuitOpen(c.serviceName, err)
			}
			return err
		}

		respBody = response.([]byte)
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		c.log.Debugf("%s %s failed (trace_id=%s): %v", req.Method, req.Path, observability.TraceID(ctx), err)
		return unwrapRetry(err)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			observability.RecordError(span, err)
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// doHTTPCall 执行实际的HTTP调用
func (c *BaseClient) doHTTPCall(ctx context.Context, req Request, target string, reqBody []byte) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set(HeaderAPIKey, c.apiKey)
	}
	observability.InjectHeaders(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	monitoring.RequestDuration.WithLabelValues(c.serviceName, req.Method, req.Path).Observe(time.Since(start).Seconds())
	if err != nil {
		monitoring.RequestsTotal.WithLabelValues(c.serviceName, req.Method, req.Path, "transport_error").Inc()
		return nil, apperrors.NewFetchFailed(err, fmt.Sprintf("%s: fetch failed: %v", c.serviceName, err))
	}
	defer resp.Body.Close()

	monitoring.RequestsTotal.WithLabelValues(c.serviceName, req.Method, req.Path, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetchFailed(err, fmt.Sprintf("%s: read response: %v", c.serviceName, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := apperrors.MessageFromBody(respBody)
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, apperrors.NewRemoteError(resp.StatusCode, msg)
	}

	return respBody, nil
}

// unwrapRetry 去掉重试包装，调用方只关心最后一次错误的类型
func unwrapRetry(err error) error {
	if !errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		return err
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		if len(errs) > 0 {
			return errs[len(errs)-1]
		}
	}
	return err
}

// GetServiceName 获取服务名称
func (c *BaseClient) GetServiceName() string {
	return c.serviceName
}

// GetBaseURL 获取基础URL
func (c *BaseClient) GetBaseURL() string {
	return c.baseURL
}

// GetCircuitBreakerState 获取熔断器状态
func (c *BaseClient) GetCircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts 获取熔断器计数
func (c *BaseClient) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}

// HealthCheck 健康检查，agent 后端返回 {"status": "ok"}
func (c *BaseClient) HealthCheck(ctx context.Context) error {
	var result map[string]interface{}
	if err := c.Get(ctx, "/health", nil, &result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	status, _ := result["status"].(string)
	if status != "ok" && status != "healthy" {
		return fmt.Errorf("service unhealthy: %v", result)
	}

	return nil
}
