package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status 健康状态
type Status string

const (
	// StatusHealthy 健康
	StatusHealthy Status = "healthy"
	// StatusUnhealthy 不健康
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded 降级
	StatusDegraded Status = "degraded"
)

// CheckResult 检查结果
type CheckResult struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Checker 健康检查器接口
type Checker interface {
	// Check 执行健康检查
	Check(ctx context.Context) CheckResult
	// Name 检查器名称
	Name() string
}

// HealthChecker 健康检查管理器
type HealthChecker struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	results  map[string]CheckResult
}

// NewHealthChecker 创建健康检查管理器
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checkers: make(map[string]Checker),
		results:  make(map[string]CheckResult),
	}
}

// Register 注册检查器
func (h *HealthChecker) Register(checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[checker.Name()] = checker
}

// Names 已注册的检查器名称
func (h *HealthChecker) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check 并发执行所有检查
func (h *HealthChecker) Check(ctx context.Context) map[string]CheckResult {
	h.mu.RLock()
	checkers := make([]Checker, 0, len(h.checkers))
	for _, checker := range h.checkers {
		checkers = append(checkers, checker)
	}
	h.mu.RUnlock()

	results := make(map[string]CheckResult)
	var wg sync.WaitGroup

	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := c.Check(ctx)
			h.mu.Lock()
			h.results[c.Name()] = result
			results[c.Name()] = result
			h.mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// LastResults 最近一次检查的结果
func (h *HealthChecker) LastResults() map[string]CheckResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]CheckResult, len(h.results))
	for k, v := range h.results {
		out[k] = v
	}
	return out
}

// Overall 汇总多个结果：任一不健康即不健康，否则任一降级即降级
func Overall(results map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Report 健康报告
type Report struct {
	Status       Status                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Timestamp    string                 `json:"timestamp"`
	Dependencies map[string]CheckResult `json:"dependencies,omitempty"`
}

// Report 执行所有检查并生成报告
func (h *HealthChecker) Report(ctx context.Context, service, version string) Report {
	results := h.Check(ctx)
	return Report{
		Status:       Overall(results),
		Service:      service,
		Version:      version,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: results,
	}
}

// ServiceChecker 外部服务健康检查，超过阈值视为降级
type ServiceChecker struct {
	name      string
	checkFn   func(context.Context) error
	threshold time.Duration // 响应时间阈值
}

// NewServiceChecker 创建服务检查器
func NewServiceChecker(name string, checkFn func(context.Context) error, threshold time.Duration) *ServiceChecker {
	return &ServiceChecker{
		name:      name,
		checkFn:   checkFn,
		threshold: threshold,
	}
}

// Name 返回检查器名称
func (s *ServiceChecker) Name() string {
	return s.name
}

// Check 执行检查
func (s *ServiceChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	err := s.checkFn(ctx)
	duration := time.Since(start)

	result := CheckResult{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Duration:  duration,
	}

	switch {
	case err != nil:
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	case s.threshold > 0 && duration > s.threshold:
		result.Status = StatusDegraded
		result.Details = map[string]interface{}{
			"threshold": s.threshold.String(),
			"actual":    duration.String(),
		}
		result.Error = fmt.Sprintf("response time exceeds threshold: %v > %v", duration, s.threshold)
	}
	return result
}

// NewRedisChecker Redis 健康检查
func NewRedisChecker(name string, client *redis.Client) *ServiceChecker {
	return NewServiceChecker(name, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, 0)
}
