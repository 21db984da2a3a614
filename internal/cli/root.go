// Package cli provides the command-line interface for fortroute.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fortroute/internal/client"
	"github.com/raphaelgruber/fortroute/internal/config"
	"github.com/raphaelgruber/fortroute/internal/service"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries state shared by every command of one invocation.
type app struct {
	verbose   bool
	jsonOut   bool
	serverURL string

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	svc      *service.Service
	remote   *client.Client
}

// remoteAnnotation marks commands that can run against a fortroute server.
const remoteAnnotation = "remote"

func remoteCapable() map[string]string {
	return map[string]string{remoteAnnotation: "true"}
}

// needsService reports whether cmd touches the learning store or catalog.
func needsService(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return cmd.Runnable()
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger, a.closeLog = config.SetupLogger(cfg.Log.File, level)

	a.svc, err = service.Open(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}
	return nil
}

func (a *app) close() {
	if a.svc != nil {
		if err := a.svc.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
		}
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func (a *app) printer(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout())
}

// newRootCmd builds the command tree. The caller closes the returned app
// after execution, whether or not the command failed.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "fortroute",
		Short: "Route planner for heritage sites that learns from visitors",
		Long: `fortroute plans a walking route through a fort under a time budget and an
energy level, and refines how important each spot is from what visitors
actually click, skip and linger at.

Learning state is stored locally (badger by default, or SurrealDB) and is
configured through fortroute.yaml or FORTROUTE_* environment variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsService(cmd) {
				return nil
			}
			if a.serverURL != "" && cmd.Annotations[remoteAnnotation] == "true" {
				a.remote = client.New(a.serverURL)
				return nil
			}
			return a.open(cmd)
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentFlags().StringVar(&a.serverURL, "server", os.Getenv("FORTROUTE_SERVER_URL"),
		"plan and track against a fortroute server instead of the local store")

	root.AddCommand(newPlanCmd(a))
	root.AddCommand(newTrackCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newScoringCmd(a))
	root.AddCommand(newStoreCmd(a))
	root.AddCommand(newSitesCmd(a))
	root.AddCommand(newVersionCmd())
	return root, a
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	cmd, a := newRootCmd()
	defer a.close()
	return cmd.ExecuteContext(ctx)
}

// run executes args against a fresh command tree writing to out.
func run(ctx context.Context, out io.Writer, args ...string) error {
	cmd, a := newRootCmd()
	defer a.close()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd.ExecuteContext(ctx)
}
