package cli

import (
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fortroute/internal/models"
)

func newScoringCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scoring",
		Short: "Show or change adaptive scoring weights",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.svc.ScoringConfig()
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			a.printer(cmd).scoring(cfg)
			return nil
		},
	})

	var (
		clickWeight, timeWeight, skipWeight float64
		enabled                             bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change weights; every stored score is recomputed",
		Long: `Change one or more adaptive scoring weights. Only the flags you pass are
changed. Every stored location score is recomputed with the new weights.

Examples:
  fortroute scoring set --click-weight 3
  fortroute scoring set --skip-weight 1 --time-weight 2
  fortroute scoring set --enabled=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update models.ScoringConfigUpdate
			flags := cmd.Flags()
			if flags.Changed("click-weight") {
				update.ClickWeight = &clickWeight
			}
			if flags.Changed("time-weight") {
				update.TimeWeight = &timeWeight
			}
			if flags.Changed("skip-weight") {
				update.SkipWeight = &skipWeight
			}
			if flags.Changed("enabled") {
				update.Enabled = &enabled
			}

			cfg, err := a.svc.UpdateScoringConfig(cmd.Context(), update)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			a.printer(cmd).scoring(cfg)
			return nil
		},
	}
	set.Flags().Float64Var(&clickWeight, "click-weight", 0, "weight per click")
	set.Flags().Float64Var(&timeWeight, "time-weight", 0, "weight per average minute spent")
	set.Flags().Float64Var(&skipWeight, "skip-weight", 0, "penalty per skip")
	set.Flags().BoolVar(&enabled, "enabled", true, "use learned behaviour when planning")
	cmd.AddCommand(set)
	return cmd
}
