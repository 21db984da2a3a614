package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fortroute/internal/models"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Back up, restore or clear learned state",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export [path]",
		Short: "Write the learned state as JSON (stdout when no path is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.svc.Export()
			if len(args) == 0 {
				return writeJSON(cmd.OutOrStdout(), snap)
			}

			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			p := a.printer(cmd)
			p.printf("%s Exported %d interactions and %d aggregates to %s\n",
				p.success("✓"), len(snap.Interactions), len(snap.LocationStats), args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <path>",
		Short: "Restore learned state from an export",
		Long: `Restore learned state from a file written by "fortroute store export".
Parts missing from the file are left as they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			var snap models.StoreSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", args[0], err)
			}

			if err := a.svc.Import(cmd.Context(), snap); err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			state := a.svc.Export()
			p := a.printer(cmd)
			p.printf("%s Imported: %d interactions, %d aggregates\n",
				p.success("✓"), len(state.Interactions), len(state.LocationStats))
			return nil
		},
	})

	var force bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete every interaction, aggregate and weight change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("reset deletes all learned state; pass --force to confirm")
			}
			a.svc.Reset(cmd.Context())
			p := a.printer(cmd)
			p.printf("%s Learned state cleared (visitor %s kept)\n", p.success("✓"), a.svc.VisitorID())
			return nil
		},
	}
	reset.Flags().BoolVarP(&force, "force", "f", false, "confirm the reset")
	cmd.AddCommand(reset)

	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Recompute every aggregate from the interaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.svc.Rebuild(cmd.Context())
			p := a.printer(cmd)
			p.printf("%s Rebuilt %d aggregates\n", p.success("✓"), n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the storage backend and visitor id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.printer(cmd)
			p.printf("backend: %s\n", a.svc.Backend())
			p.printf("visitor: %s\n", a.svc.VisitorID())
			if a.svc.Backend() != a.cfg.Store.Backend {
				p.println(p.warn("configured backend " + a.cfg.Store.Backend + " unavailable; changes are not persisted"))
			}
			return nil
		},
	})
	return cmd
}
