package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/service"
)

func newTrackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record a visitor interaction",
		Long: `Record what a visitor did at a location. Each recorded action updates the
location's aggregate and adaptive score immediately.

Examples:
  fortroute track click shivneri templeArea
  fortroute track skip shivneri viewpoint
  fortroute track dwell shivneri shivJanmabhoomi 12.5`,
	}

	record := func(cmd *cobra.Command, site, location string, action service.Action, minutes float64) error {
		var (
			agg models.LocationAggregate
			err error
		)
		if a.remote != nil {
			agg, err = a.remote.Track(cmd.Context(), site, location, string(action), minutes)
		} else {
			agg, err = a.svc.Track(cmd.Context(), site, location, action, minutes)
		}
		if err != nil {
			return err
		}
		if a.jsonOut {
			return writeJSON(cmd.OutOrStdout(), agg)
		}
		a.printer(cmd).aggregate(agg)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "click <site> <location>",
		Short:       "Record that a location was opened",
		Args:        cobra.ExactArgs(2),
		Annotations: remoteCapable(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return record(cmd, args[0], args[1], service.ActionClick, 0)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:         "skip <site> <location>",
		Short:       "Record that a location was passed over",
		Args:        cobra.ExactArgs(2),
		Annotations: remoteCapable(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return record(cmd, args[0], args[1], service.ActionSkip, 0)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:         "dwell <site> <location> <minutes>",
		Short:       "Record time spent at a location",
		Args:        cobra.ExactArgs(3),
		Annotations: remoteCapable(),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid minutes %q: %w", args[2], err)
			}
			return record(cmd, args[0], args[1], service.ActionDwell, minutes)
		},
	})
	return cmd
}
