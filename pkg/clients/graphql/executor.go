package graphql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/singleflight"

	"github.com/NethermindEth/wei/pkg/cache"
	"github.com/NethermindEth/wei/pkg/clients/httpclient"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
	"github.com/NethermindEth/wei/pkg/monitoring"
)

const (
	// DefaultHubURL 默认 GraphQL hub
	DefaultHubURL = "https://hub.snapshot.org/graphql"
	// DefaultOrderBy 提案默认排序字段
	DefaultOrderBy = "created"
	// DefaultSpacesPageSize 一次性读取 space 列表的条数
	DefaultSpacesPageSize = 1000

	cacheKeyPrefix = "gql:"
)

// FetchPolicy 单次查询的缓存策略
type FetchPolicy int

const (
	// CacheFirst 命中响应缓存则直接返回，否则请求网络
	CacheFirst FetchPolicy = iota
	// NetworkOnly 总是请求网络，结果仍写回缓存
	NetworkOnly
)

// String 返回策略名称
func (p FetchPolicy) String() string {
	if p == NetworkOnly {
		return "network-only"
	}
	return "cache-first"
}

// Executor GraphQL 查询执行器
// 每次调用最多一次逻辑网络请求（传输层的重试不计入）
type Executor struct {
	client   *httpclient.BaseClient
	cache    cache.Cache
	cacheTTL time.Duration
	group    singleflight.Group
	log      *log.Helper
}

// NewExecutor 创建执行器，respCache 为 nil 时不缓存响应
func NewExecutor(client *httpclient.BaseClient, respCache cache.Cache, cacheTTL time.Duration, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Executor{
		client:   client,
		cache:    respCache,
		cacheTTL: cacheTTL,
		log:      log.NewHelper(log.With(logger, "module", "graphql")),
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage          `json:"data"`
	Errors []apperrors.GraphQLError `json:"errors,omitempty"`
}

// Execute 执行查询并把 data 解码到 out
func (e *Executor) Execute(ctx context.Context, operation, query string, variables map[string]any, policy FetchPolicy, out any) error {
	key, err := CacheKey(query, variables)
	if err != nil {
		return err
	}

	var data []byte
	if policy == CacheFirst {
		if cached, ok := e.lookup(ctx, operation, key); ok {
			data = cached
		} else {
			// 合并的请求不随发起方取消，每个调用方只等待自己的 ctx
			fetchCtx := context.WithoutCancel(ctx)
			ch := e.group.DoChan(key, func() (any, error) {
				return e.fetch(fetchCtx, key, query, variables)
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case res := <-ch:
				if res.Err != nil {
					return res.Err
				}
				if res.Shared {
					e.log.Debugf("%s: shared in-flight response", operation)
				}
				data = res.Val.([]byte)
			}
		}
	} else {
		if e.cache != nil {
			monitoring.ResponseCacheLookups.WithLabelValues(operation, "bypass").Inc()
		}
		data, err = e.fetch(ctx, key, query, variables)
		if err != nil {
			return err
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", operation, err)
	}
	return nil
}

// lookup 读取响应缓存，缓存故障按未命中处理
func (e *Executor) lookup(ctx context.Context, operation, key string) ([]byte, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, err := e.cache.GetBytes(ctx, key)
	switch {
	case err == nil:
		monitoring.ResponseCacheLookups.WithLabelValues(operation, "hit").Inc()
		return data, true
	case errors.Is(err, cache.ErrMiss):
		monitoring.ResponseCacheLookups.WithLabelValues(operation, "miss").Inc()
	default:
		monitoring.ResponseCacheLookups.WithLabelValues(operation, "error").Inc()
		e.log.Warnf("response cache read failed: %v", err)
	}
	return nil, false
}

// fetch 请求网络并写回缓存
func (e *Executor) fetch(ctx context.Context, key, query string, variables map[string]any) ([]byte, error) {
	var resp gqlResponse
	if err := e.client.Post(ctx, "", gqlRequest{Query: query, Variables: variables}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		return nil, apperrors.NewGraphQLError(resp.Errors[0].Message)
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, apperrors.NewGraphQLError("empty data in graphql response")
	}

	if e.cache != nil {
		if err := e.cache.SetBytes(ctx, key, resp.Data, e.cacheTTL); err != nil {
			e.log.Warnf("response cache write failed: %v", err)
		}
	}

	return resp.Data, nil
}

// FetchProposals 读取一页提案
func (e *Executor) FetchProposals(ctx context.Context, page ProposalPage, policy FetchPolicy) ([]Proposal, error) {
	orderBy := page.OrderBy
	if orderBy == "" {
		orderBy = DefaultOrderBy
	}
	direction := page.OrderDirection
	if direction == "" {
		direction = OrderDesc
	}

	query := proposalsQuery
	variables := map[string]any{
		"first":          page.First,
		"skip":           page.Skip,
		"orderBy":        orderBy,
		"orderDirection": string(direction),
	}
	if page.SpaceID != "" {
		query = proposalsBySpaceQuery
		variables["space"] = page.SpaceID
	}

	var data struct {
		Proposals []Proposal `json:"proposals"`
	}
	if err := e.Execute(ctx, "proposals", query, variables, policy, &data); err != nil {
		return nil, fmt.Errorf("fetch proposals (skip=%d): %w", page.Skip, err)
	}
	return data.Proposals, nil
}

// FetchSpaces 读取一页已认证的 space
func (e *Executor) FetchSpaces(ctx context.Context, page SpacePage, policy FetchPolicy) ([]Space, error) {
	variables := map[string]any{
		"first": page.First,
		"skip":  page.Skip,
	}

	var data struct {
		Spaces []Space `json:"spaces"`
	}
	if err := e.Execute(ctx, "spaces", spacesQuery, variables, policy, &data); err != nil {
		return nil, fmt.Errorf("fetch spaces (skip=%d): %w", page.Skip, err)
	}

	if !page.OnlyWithProposals {
		return data.Spaces, nil
	}
	spaces := make([]Space, 0, len(data.Spaces))
	for _, s := range data.Spaces {
		if s.ProposalsCount > 0 {
			spaces = append(spaces, s)
		}
	}
	return spaces, nil
}

// FetchProposal 按 id 读取单个提案
func (e *Executor) FetchProposal(ctx context.Context, id string, policy FetchPolicy) (*Proposal, error) {
	if id == "" {
		return nil, apperrors.NewInvalidArgument("proposal id is required")
	}

	var data struct {
		Proposal *Proposal `json:"proposal"`
	}
	if err := e.Execute(ctx, "proposal", proposalByIDQuery, map[string]any{"id": id}, policy, &data); err != nil {
		return nil, fmt.Errorf("fetch proposal %s: %w", id, err)
	}
	if data.Proposal == nil {
		return nil, apperrors.NewNotFound(fmt.Sprintf("proposal %s not found", id))
	}
	return data.Proposal, nil
}

// CacheKey 响应缓存键：查询文本加上规范化的变量
// encoding/json 对 map 按键排序，变量顺序不影响结果
func CacheKey(query string, variables map[string]any) (string, error) {
	vars, err := json.Marshal(variables)
	if err != nil {
		return "", fmt.Errorf("marshal variables: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write(vars)
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
