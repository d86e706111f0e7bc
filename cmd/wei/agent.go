package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NethermindEth/wei/pkg/clients/agent"
	"github.com/NethermindEth/wei/pkg/clients/graphql"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

var (
	flagRefresh     bool
	flagCached      bool
	flagGroup       bool
	flagDescription string
	flagProposalID  string
	flagLimit       int
	roadmapReq      agent.RoadmapRequest
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a proposal",
	Long: `Analyze a proposal description, or a proposal fetched from the hub by id.
With --refresh the backend cache entry is refreshed before reading.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		req := agent.AnalysisRequest{Description: flagDescription}
		switch {
		case flagProposalID != "" && flagDescription != "":
			return apperrors.NewInvalidArgument("--description and --proposal are mutually exclusive")
		case flagProposalID != "":
			p, err := rt.app.GraphQL.FetchProposal(ctx, flagProposalID, graphql.CacheFirst)
			if err != nil {
				return err
			}
			req = agent.NewAnalysisRequest(p.Title, p.Body)
		}

		resp, err := readOrRefresh(ctx, req, rt.app.Agent.Analysis)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var communityCmd = &cobra.Command{
	Use:   "community TOPIC",
	Short: "Research community discussion of a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var (
			resp *agent.CommunityResponse
			err  error
		)
		if flagCached {
			resp, err = rt.app.Agent.CachedCommunity(ctx, args[0])
		} else {
			resp, err = readOrRefresh(ctx, agent.CommunityRequest{Topic: args[0]}, rt.app.Agent.Community)
		}
		if err != nil {
			return err
		}
		if resp == nil {
			return apperrors.NewNotFound(fmt.Sprintf("no cached research for topic %q", args[0]))
		}

		if flagGroup {
			return printJSON(cmd.OutOrStdout(), resp.Grouped())
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related QUERY",
	Short: "Search related proposals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		req := agent.RelatedRequest{Query: args[0], Limit: flagLimit}
		var (
			resp *agent.RelatedResponse
			err  error
		)
		if flagCached {
			resp, err = rt.app.Agent.CachedRelated(ctx, req)
		} else {
			resp, err = readOrRefresh(ctx, req, rt.app.Agent.Related)
		}
		if err != nil {
			return err
		}
		if resp == nil {
			return apperrors.NewNotFound(fmt.Sprintf("no cached related proposals for %q", args[0]))
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Generate a roadmap for a subject",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		resp, err := readOrRefresh(ctx, roadmapReq, rt.app.Agent.Roadmap)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, communityCmd, relatedCmd, roadmapCmd} {
		c.Flags().BoolVar(&flagRefresh, "refresh", false, "refresh the backend cache entry before reading")
	}

	analyzeCmd.Flags().StringVar(&flagDescription, "description", "", "proposal description text")
	analyzeCmd.Flags().StringVar(&flagProposalID, "proposal", "", "analyze this proposal id from the hub")

	communityCmd.Flags().BoolVar(&flagCached, "cached", false, "only read an existing cache entry")
	communityCmd.Flags().BoolVar(&flagGroup, "group", false, "group resources by type")
	relatedCmd.Flags().BoolVar(&flagCached, "cached", false, "only read an existing cache entry")
	relatedCmd.Flags().IntVar(&flagLimit, "limit", agent.DefaultRelatedLimit, fmt.Sprintf("max results (at most %d)", agent.MaxRelatedLimit))

	roadmapCmd.Flags().StringVar(&roadmapReq.Subject, "subject", "", "roadmap subject")
	roadmapCmd.Flags().StringVar(&roadmapReq.Kind, "kind", "protocol", "subject kind")
	roadmapCmd.Flags().StringVar(&roadmapReq.Scope, "scope", "", "roadmap scope")
	roadmapCmd.Flags().StringVar(&roadmapReq.From, "from", "", "window start (YYYY-MM-DD)")
	roadmapCmd.Flags().StringVar(&roadmapReq.To, "to", "", "window end (YYYY-MM-DD)")
	_ = roadmapCmd.MarkFlagRequired("subject")
}

// readOrRefresh 按 --refresh 选择 Refresh 或 Get
func readOrRefresh[Req, Resp any](ctx context.Context, req Req, a *agent.Adapter[Req, Resp]) (Resp, error) {
	if flagRefresh {
		return a.Refresh(ctx, req)
	}
	return a.Get(ctx, req)
}
