package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fortroute/internal/models"
)

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show learned visitor behaviour",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "aggregates <site>",
		Short: "List per-location aggregates and adaptive scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aggs, err := a.svc.Aggregates(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				if aggs == nil {
					aggs = []models.LocationAggregate{}
				}
				return writeJSON(cmd.OutOrStdout(), aggs)
			}
			a.printer(cmd).aggregates(aggs)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "analytics <site>",
		Short: "Summarize popular, skipped and lingered-at spots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analytics, err := a.svc.Analytics(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), analytics)
			}

			p := a.printer(cmd)
			if analytics == nil {
				p.println("No interactions recorded yet.")
				return nil
			}
			p.printf("%s %d visitors, %d interactions\n", p.title("Analytics:"), analytics.TotalVisitors, analytics.TotalInteractions)
			p.println(p.title("Most popular:"))
			for _, s := range analytics.PopularSpots {
				p.printf("  %-20s %d clicks\n", s.LocationID, s.Clicks)
			}
			if len(analytics.SkippedSpots) > 0 {
				p.println(p.title("Most skipped:"))
				for _, s := range analytics.SkippedSpots {
					p.printf("  %-20s %d skips\n", s.LocationID, s.Skips)
				}
			}
			p.println(p.title("Average time spent:"))
			for _, d := range analytics.AverageDurations {
				p.printf("  %-20s %s min\n", d.LocationID, strconv.FormatFloat(d.AverageMinutes, 'f', -1, 64))
			}
			return nil
		},
	})
	return cmd
}
