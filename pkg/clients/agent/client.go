package agent

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	"github.com/NethermindEth/wei/pkg/clients/httpclient"
)

// Client agent 后端的功能入口
// 四个功能共享同一套 Get / Refresh 语义
type Client struct {
	base  *httpclient.BaseClient
	cache *cachectl.Client

	Analysis  *Adapter[AnalysisRequest, *AnalysisResponse]
	Community *Adapter[CommunityRequest, *CommunityResponse]
	Related   *Adapter[RelatedRequest, *RelatedResponse]
	Roadmap   *Adapter[RoadmapRequest, *RoadmapResponse]
}

// NewClient 创建 agent 客户端
func NewClient(base *httpclient.BaseClient, cache *cachectl.Client, logger log.Logger) *Client {
	c := &Client{base: base, cache: cache}

	c.Analysis = NewAdapter("analysis", cache,
		func(req AnalysisRequest) cachectl.Descriptor { return cachectl.AnalysisDescriptor(req) },
		c.analyze, logger,
		WithValidation[AnalysisRequest, *AnalysisResponse](validateAnalysis))
	c.Community = NewAdapter("community", cache, describeCommunity, c.research, logger,
		WithValidation[CommunityRequest, *CommunityResponse](validateCommunity))
	c.Related = NewAdapter("related_proposals", cache, describeRelated, c.searchRelated, logger,
		WithValidation[RelatedRequest, *RelatedResponse](validateRelated))
	c.Roadmap = NewAdapter("roadmap", cache, describeRoadmap, c.generateRoadmap, logger,
		WithValidation[RoadmapRequest, *RoadmapResponse](RoadmapRequest.Validate))

	return c
}

// HealthCheck 检查 agent 后端
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.base.HealthCheck(ctx)
}

// Cache 缓存控制客户端
func (c *Client) Cache() *cachectl.Client {
	return c.cache
}
