package graphql

import (
	"context"

	"github.com/NethermindEth/wei/pkg/pagination"
)

// ProposalPages 把提案查询绑定为分页数据源，Request.Filter 为 space id
// 分页请求一律绕过响应缓存，避免读到过期的页
func ProposalPages(exec *Executor) pagination.PageFunc[Proposal] {
	return func(ctx context.Context, req pagination.Request) ([]Proposal, error) {
		return exec.FetchProposals(ctx, ProposalPage{
			First:   req.PageSize,
			Skip:    req.Skip,
			SpaceID: req.Filter,
		}, NetworkOnly)
	}
}

// SpacePages 把 space 查询绑定为分页数据源
// 不在这里过滤 proposalsCount，否则短页会被误判为已到末尾
func SpacePages(exec *Executor) pagination.PageFunc[Space] {
	return func(ctx context.Context, req pagination.Request) ([]Space, error) {
		return exec.FetchSpaces(ctx, SpacePage{
			First: req.PageSize,
			Skip:  req.Skip,
		}, NetworkOnly)
	}
}
