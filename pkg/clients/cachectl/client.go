package cachectl

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/NethermindEth/wei/pkg/clients/httpclient"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
	"github.com/NethermindEth/wei/pkg/monitoring"
)

// CachedQueryInfo 后端缓存中的一条记录
type CachedQueryInfo struct {
	CacheKey    string            `json:"cache_key"`
	Description string            `json:"description"`
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	QueryParams map[string]string `json:"query_params"`
	UserContext string            `json:"user_context,omitempty"`
}

// OperationResponse invalidate / refresh 的结果
type OperationResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	CacheKey string `json:"cache_key"`
}

// Stats 缓存统计
type Stats struct {
	TotalEntries   int64 `json:"total_entries"`
	ActiveEntries  int64 `json:"active_entries"`
	ExpiredEntries int64 `json:"expired_entries"`
}

// CleanupResponse 清理过期条目的结果
type CleanupResponse struct {
	CleanedEntries int64  `json:"cleaned_entries"`
	Message        string `json:"message"`
}

type queryEnvelope struct {
	Query Descriptor `json:"query"`
}

// Client 后端通用缓存控制协议客户端
// 所有失败都以 CACHE_PROTOCOL_ERROR 返回，不做吞错处理
type Client struct {
	base *httpclient.BaseClient
	log  *log.Helper
}

// NewClient 创建缓存控制客户端
func NewClient(base *httpclient.BaseClient, logger log.Logger) *Client {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Client{
		base: base,
		log:  log.NewHelper(log.With(logger, "module", "cachectl")),
	}
}

// List 列出所有缓存条目
func (c *Client) List(ctx context.Context) ([]CachedQueryInfo, error) {
	var entries []CachedQueryInfo
	err := c.base.Get(ctx, "/cache", nil, &entries)
	if err = c.finish("list", err); err != nil {
		return nil, err
	}
	return entries, nil
}

// Find 在缓存列表中查找与描述对应的条目，不存在返回 nil
func (c *Client) Find(ctx context.Context, d Descriptor) (*CachedQueryInfo, error) {
	entries, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if d.Matches(entries[i]) {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// Invalidate 删除缓存条目
func (c *Client) Invalidate(ctx context.Context, d Descriptor) (*OperationResponse, error) {
	var resp OperationResponse
	err := c.base.Post(ctx, "/cache/invalidate", queryEnvelope{Query: d}, &resp)
	if err = c.finish("invalidate", err); err != nil {
		return nil, err
	}
	c.log.Infof("invalidated %s (%s): %s", d.Description(), resp.CacheKey, resp.Message)
	return &resp, nil
}

// Refresh 使缓存条目失效，下一次读取会重新计算
func (c *Client) Refresh(ctx context.Context, d Descriptor) (*OperationResponse, error) {
	var resp OperationResponse
	err := c.base.Post(ctx, "/cache/refresh", queryEnvelope{Query: d}, &resp)
	if err = c.finish("refresh", err); err != nil {
		return nil, err
	}
	c.log.Infof("refreshed %s (%s)", d.Description(), resp.CacheKey)
	return &resp, nil
}

// Stats 缓存统计
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := c.base.Get(ctx, "/cache/stats", nil, &stats)
	if err = c.finish("stats", err); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Cleanup 清理过期条目
func (c *Client) Cleanup(ctx context.Context) (*CleanupResponse, error) {
	var resp CleanupResponse
	err := c.base.Post(ctx, "/cache/cleanup", nil, &resp)
	if err = c.finish("cleanup", err); err != nil {
		return nil, err
	}
	c.log.Infof("cleanup removed %d entries", resp.CleanedEntries)
	return &resp, nil
}

// finish 记录指标并把失败转换为缓存协议错误
func (c *Client) finish(operation string, err error) error {
	monitoring.CacheControlOperations.WithLabelValues(operation, monitoring.Outcome(err)).Inc()
	if err == nil {
		return nil
	}
	c.log.Errorf("cache %s failed: %v", operation, err)
	return apperrors.NewCacheProtocolError(operation, err)
}
