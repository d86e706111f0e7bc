package agent

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

// CommunityRequest 社区调研请求
type CommunityRequest struct {
	Topic string `json:"topic"`
}

// DiscussionResource 讨论渠道
type DiscussionResource struct {
	Name               string `json:"name"`
	Link               string `json:"link"`
	Type               string `json:"type"`
	Description        string `json:"description"`
	QualityOfDiscourse string `json:"quality_of_discourse"`
}

// CommunityResponse 社区调研结果
type CommunityResponse struct {
	Topic     string               `json:"topic"`
	Resources []DiscussionResource `json:"resources"`
	FromCache bool                 `json:"from_cache"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// Grouped 按类型分组的渠道
func (r *CommunityResponse) Grouped() map[string][]DiscussionResource {
	return GroupResourcesByType(r.Resources)
}

func validateCommunity(req CommunityRequest) error {
	if strings.TrimSpace(req.Topic) == "" {
		return apperrors.NewInvalidArgument("topic is required")
	}
	return nil
}

func describeCommunity(req CommunityRequest) cachectl.Descriptor {
	return cachectl.CommunityDescriptor(req.Topic)
}

func (c *Client) research(ctx context.Context, req CommunityRequest) (*CommunityResponse, error) {
	var resp CommunityResponse
	if err := c.base.Post(ctx, "/community", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CachedCommunity 只读取已缓存的调研结果，后端没有缓存时返回 nil
func (c *Client) CachedCommunity(ctx context.Context, topic string) (*CommunityResponse, error) {
	if err := validateCommunity(CommunityRequest{Topic: topic}); err != nil {
		return nil, err
	}

	var resp *CommunityResponse
	if err := c.base.Get(ctx, "/community", url.Values{"topic": {topic}}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
