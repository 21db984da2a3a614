package cli

import (
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/planner"
)

func newPlanCmd(a *app) *cobra.Command {
	var (
		timeAvailable float64
		energy        string
		noAdaptive    bool
	)

	cmd := &cobra.Command{
		Use:   "plan <site>",
		Short: "Plan a route through a site",
		Long: `Plan a route through a site for the time you have and how energetic you feel.

The recommended plan is printed first, followed by alternatives that visit a
different set of spots. Learned visitor behaviour shifts the ranking unless
--no-adaptive is given or adaptive scoring is disabled.

Examples:
  fortroute plan shivneri --time 60
  fortroute plan shivneri --time 90 --energy high
  fortroute plan shivneri --time 45 --no-adaptive --json
  fortroute plan shivneri --server http://localhost:8484`,
		Args:        cobra.ExactArgs(1),
		Annotations: remoteCapable(),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := planner.Request{
				TimeAvailable: timeAvailable,
				Energy:        planner.EnergyLevel(energy),
				UseAdaptive:   !noAdaptive,
			}

			var (
				result models.PlanResult
				err    error
			)
			if a.remote != nil {
				result, err = a.remote.Plan(cmd.Context(), args[0], req)
			} else {
				result, err = a.svc.Plan(args[0], req)
			}
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			p := a.printer(cmd)
			p.plan(result.Primary, true)
			for _, alt := range result.Alternatives {
				p.println()
				p.plan(alt, false)
			}
			if result.IsAdaptive {
				p.println()
				p.println(p.hint("Importance blended with visitor behaviour."))
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&timeAvailable, "time", "t", 60, "minutes available")
	cmd.Flags().StringVarP(&energy, "energy", "e", "", "energy level: low, medium or high (default from config)")
	cmd.Flags().BoolVar(&noAdaptive, "no-adaptive", false, "plan with curated importance only")
	return cmd
}
