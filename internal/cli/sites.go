package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/fortroute/internal/planner"
)

func newSitesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List and inspect plannable sites",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := a.svc.Sites()
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			p := a.printer(cmd)
			p.printf("Sites (%d):\n\n", len(list))
			for _, s := range list {
				p.printf("- %s %s (%d locations, %d connections)\n",
					p.title(s.ID), s.Name, s.LocationCount, s.EdgeCount)
			}
			return nil
		},
	})

	var asYAML bool
	show := &cobra.Command{
		Use:   "show <site>",
		Short: "Show a site's locations and connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := a.svc.Site(args[0])
			if err != nil {
				return err
			}
			doc := site.Document()

			switch {
			case a.jsonOut:
				return writeJSON(cmd.OutOrStdout(), doc)
			case asYAML:
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return fmt.Errorf("encode site: %w", err)
				}
				return enc.Close()
			}

			p := a.printer(cmd)
			p.printf("%s %s (entry: %s)\n\n", p.title(doc.Name), p.hint("["+doc.ID+"]"), doc.Entry)
			p.println(p.title("Locations:"))
			for _, l := range doc.Locations {
				p.printf("  %-20s %-24s importance %-4v visit %-6s effort %d\n",
					l.ID, l.Name, l.HistoricalImportance, minutes(l.VisitTime), l.EffortLevel)
			}
			p.println(p.title("Connections:"))
			for _, c := range doc.Connections {
				p.printf("  %s ↔ %s  %s, difficulty %d\n", c.From, c.To, minutes(c.WalkTime), c.Difficulty)
			}
			p.println(p.title("Reachable from entry:"))
			for _, e := range []planner.EnergyLevel{planner.EnergyLow, planner.EnergyMedium, planner.EnergyHigh} {
				reach := site.Reachable(doc.Entry, e.Ceiling())
				p.printf("  %-7s %d/%d locations\n", e, len(reach), len(doc.Locations))
			}
			return nil
		},
	}
	show.Flags().BoolVar(&asYAML, "yaml", false, "print the site document as YAML")
	cmd.AddCommand(show)
	return cmd
}
