package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NethermindEth/wei/internal/app"
	"github.com/NethermindEth/wei/pkg/config"
	"github.com/NethermindEth/wei/pkg/health"
)

type healthOutput struct {
	health.Report
	CircuitBreakers []app.BreakerStats `json:"circuit_breakers"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the hub, the analysis backend and the response cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		out := healthOutput{
			Report:          rt.app.Health.Report(ctx, config.DefaultAppName, Version),
			CircuitBreakers: rt.app.Breakers(),
		}
		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		if out.Status == health.StatusUnhealthy {
			return fmt.Errorf("wei is %s", out.Status)
		}
		return nil
	},
}
