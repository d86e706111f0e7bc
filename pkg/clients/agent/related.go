package agent

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

const (
	// DefaultRelatedLimit 相关提案默认条数
	DefaultRelatedLimit = 5
	// MaxRelatedLimit 后端允许的最大条数
	MaxRelatedLimit = 10
)

// RelatedRequest 相关提案搜索
type RelatedRequest struct {
	Query string
	// Limit 为 0 时使用默认值
	Limit int
}

func (r RelatedRequest) limit() int {
	if r.Limit <= 0 {
		return DefaultRelatedLimit
	}
	return r.Limit
}

// RelatedProposal 相关提案
type RelatedProposal struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary,omitempty"`
	PublishedDate  string   `json:"published_date,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	Source         string   `json:"source"`
}

// RelatedResponse 相关提案搜索结果
type RelatedResponse struct {
	RelatedProposals []RelatedProposal `json:"related_proposals"`
	Query            string            `json:"query"`
	FromCache        bool              `json:"from_cache"`
	CacheKey         string            `json:"cache_key,omitempty"`
}

func validateRelated(req RelatedRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return apperrors.NewInvalidArgument("query is required")
	}
	if req.Limit > MaxRelatedLimit {
		return apperrors.NewInvalidArgument("limit must not exceed " + strconv.Itoa(MaxRelatedLimit))
	}
	return nil
}

func describeRelated(req RelatedRequest) cachectl.Descriptor {
	return cachectl.RelatedProposalsDescriptor(req.Query, req.limit())
}

func (c *Client) searchRelated(ctx context.Context, req RelatedRequest) (*RelatedResponse, error) {
	query := url.Values{
		"query": {req.Query},
		"limit": {strconv.Itoa(req.limit())},
	}
	var resp RelatedResponse
	if err := c.base.Get(ctx, "/related-proposals", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CachedRelated 后端已缓存时返回结果，否则返回 nil
// 通过缓存列表判断是否存在，不会触发后端重新计算
func (c *Client) CachedRelated(ctx context.Context, req RelatedRequest) (*RelatedResponse, error) {
	if err := validateRelated(req); err != nil {
		return nil, err
	}

	entry, err := c.cache.Find(ctx, describeRelated(req))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return c.searchRelated(ctx, req)
}
