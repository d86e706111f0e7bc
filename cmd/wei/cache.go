package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

// descriptorFlags 缓存描述符参数
type descriptorFlags struct {
	endpoint string
	method   string
	params   []string
	body     string
	user     string
}

var (
	descFlags     descriptorFlags
	flagListMatch bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and control the analysis backend cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached queries",
	Long: `List cached queries. With --match only the entries for the query described
by --endpoint/--method/--param/--body/--user are shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		entries, err := rt.app.Agent.Cache().List(ctx)
		if err != nil {
			return err
		}
		if flagListMatch {
			d, err := descFlags.descriptor()
			if err != nil {
				return err
			}
			matched := make([]cachectl.CachedQueryInfo, 0, 1)
			for _, e := range entries {
				if d.Matches(e) {
					matched = append(matched, e)
				}
			}
			entries = matched
		}
		return printJSON(cmd.OutOrStdout(), entries)
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		stats, err := rt.app.Agent.Cache().Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		resp, err := rt.app.Agent.Cache().Cleanup(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Invalidate the cache entry of a query",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		d, err := descFlags.descriptor()
		if err != nil {
			return err
		}
		resp, err := rt.app.Agent.Cache().Invalidate(ctx, d)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Mark the cache entry of a query for refresh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		d, err := descFlags.descriptor()
		if err != nil {
			return err
		}
		resp, err := rt.app.Agent.Cache().Refresh(ctx, d)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	for _, c := range []*cobra.Command{cacheListCmd, cacheInvalidateCmd, cacheRefreshCmd} {
		c.Flags().StringVar(&descFlags.endpoint, "endpoint", "", "backend endpoint, e.g. /pre-filter")
		c.Flags().StringVar(&descFlags.method, "method", "POST", "HTTP method")
		c.Flags().StringArrayVar(&descFlags.params, "param", nil, "query parameter key=value (repeatable)")
		c.Flags().StringVar(&descFlags.body, "body", "", "request body as JSON")
		c.Flags().StringVar(&descFlags.user, "user", "", "user context")
	}
	cacheListCmd.Flags().BoolVar(&flagListMatch, "match", false, "only entries matching the query flags")

	cacheCmd.AddCommand(cacheListCmd, cacheStatsCmd, cacheCleanupCmd, cacheInvalidateCmd, cacheRefreshCmd)
}

// descriptor 由命令行参数构造描述符
func (f descriptorFlags) descriptor() (cachectl.Descriptor, error) {
	if strings.TrimSpace(f.endpoint) == "" {
		return cachectl.Descriptor{}, apperrors.NewInvalidArgument("--endpoint is required")
	}

	d := cachectl.NewDescriptor(strings.ToUpper(f.method), f.endpoint)
	for _, p := range f.params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return cachectl.Descriptor{}, apperrors.NewInvalidArgument(fmt.Sprintf("invalid --param %q (expected key=value)", p))
		}
		d = d.WithParam(key, value)
	}
	if f.body != "" {
		var body any
		if err := json.Unmarshal([]byte(f.body), &body); err != nil {
			return cachectl.Descriptor{}, apperrors.NewInvalidArgument(fmt.Sprintf("invalid --body: %v", err))
		}
		d = d.WithBody(body)
	}
	if f.user != "" {
		d = d.WithUserContext(f.user)
	}
	return d, nil
}
