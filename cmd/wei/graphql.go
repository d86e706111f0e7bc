package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NethermindEth/wei/pkg/clients/graphql"
	"github.com/NethermindEth/wei/pkg/pagination"
)

var (
	flagSpace           string
	flagPageSize        int
	flagPages           int
	flagWithProposals   bool
	flagNoResponseCache bool
)

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List proposals page by page",
	Long: `List proposals newest first. The first page is loaded, then up to --pages
pages in total are appended with duplicate ids removed. --pages 0 loads until
the hub returns a short page.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		ctrl := rt.app.ProposalController(flagSpace, flagPageSize)
		defer ctrl.Close()

		out, err := collectPages[graphql.Proposal](ctx, ctrl, flagPages)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List verified spaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		ctrl := rt.app.SpaceController(flagPageSize)
		defer ctrl.Close()

		out, err := collectPages[graphql.Space](ctx, ctrl, flagPages)
		if err != nil {
			return err
		}
		// 分页时不能过滤，否则短页会提前结束加载
		if flagWithProposals {
			kept := out.Items[:0]
			for _, s := range out.Items {
				if s.ProposalsCount > 0 {
					kept = append(kept, s)
				}
			}
			out.Items = kept
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var proposalCmd = &cobra.Command{
	Use:   "proposal ID",
	Short: "Show a single proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		p, err := rt.app.GraphQL.FetchProposal(ctx, args[0], fetchPolicy())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	for _, c := range []*cobra.Command{proposalsCmd, spacesCmd} {
		c.Flags().IntVar(&flagPageSize, "page-size", 0, "items per page (default: pagination.page_size)")
		c.Flags().IntVar(&flagPages, "pages", 1, "number of pages to load, 0 loads all")
	}
	proposalsCmd.Flags().StringVar(&flagSpace, "space", "", "only proposals of this space id")
	spacesCmd.Flags().BoolVar(&flagWithProposals, "with-proposals", false, "drop spaces without proposals")
	proposalCmd.Flags().BoolVar(&flagNoResponseCache, "no-cache", false, "bypass the response cache")
}

func fetchPolicy() graphql.FetchPolicy {
	if flagNoResponseCache {
		return graphql.NetworkOnly
	}
	return graphql.CacheFirst
}

// pageOutput 分页命令的输出
type pageOutput[T any] struct {
	Items   []T  `json:"items"`
	Count   int  `json:"count"`
	Skip    int  `json:"skip"`
	HasMore bool `json:"has_more"`
}

// pager 是 collectPages 需要的控制器能力
type pager[T any] interface {
	Start()
	LoadMore() bool
	Wait(ctx context.Context) error
	Snapshot() pagination.Snapshot[T]
}

// collectPages 加载首页，再追加到 pages 页或没有更多数据为止
func collectPages[T any](ctx context.Context, p pager[T], pages int) (*pageOutput[T], error) {
	p.Start()
	if err := p.Wait(ctx); err != nil {
		return nil, err
	}

	for loaded := 1; pages <= 0 || loaded < pages; loaded++ {
		if err := p.Snapshot().Err; err != nil {
			break
		}
		if !p.LoadMore() {
			break
		}
		if err := p.Wait(ctx); err != nil {
			return nil, err
		}
	}

	snap := p.Snapshot()
	if snap.Err != nil {
		return nil, fmt.Errorf("load page at skip %d: %w", snap.Skip, snap.Err)
	}
	return &pageOutput[T]{
		Items:   snap.Items,
		Count:   len(snap.Items),
		Skip:    snap.Skip,
		HasMore: snap.HasMore,
	}, nil
}
