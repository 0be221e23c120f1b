// Package cli provides the jobsync operator command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"job-sync/internal/app"
	"job-sync/internal/config"
)

// runtime is the state shared by every subcommand of one invocation.
type runtime struct {
	verbose bool

	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	container *app.Container
}

func (rt *runtime) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if rt.verbose {
		cfg.Log.Level = "debug"
	}
	rt.cfg = cfg
	rt.logger, rt.closeLog = config.SetupLogger(cfg.Log)

	c, err := app.NewContainer(ctx, cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("init container: %w", err)
	}
	rt.container = c
	return nil
}

// ensureSchema applies pending migrations on every connect; failures are left
// for the command itself to surface as a store error.
func (rt *runtime) ensureSchema(ctx context.Context) {
	if err := rt.container.EnsureSchema(ctx); err != nil {
		rt.logger.Warn("migrations not applied", "err", err)
	}
}

func (rt *runtime) close() {
	if rt.container != nil {
		if err := rt.container.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close resources: %v\n", err)
		}
		rt.container = nil
	}
	if rt.closeLog != nil {
		_ = rt.closeLog()
		rt.closeLog = nil
	}
}

func newRootCmd() (*cobra.Command, *runtime) {
	rt := &runtime{}
	root := &cobra.Command{
		Use:   "jobsync",
		Short: "Multi-source job and scholarship ingestion",
		Long: `jobsync pulls listings from job APIs, RSS feeds and scholarship sites,
normalizes them and upserts them into the store.

Examples:
  jobsync sync                 run providers scheduled for this hour
  jobsync sync --api jooble --force
  jobsync scrape
  jobsync seed                 load the curated datasets
  jobsync migrate status
  jobsync schedule             run the hourly cadence in-process`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return rt.init(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newSyncCmd(rt))
	root.AddCommand(newScrapeCmd(rt))
	root.AddCommand(newSeedCmd(rt))
	root.AddCommand(newMigrateCmd(rt))
	root.AddCommand(newScheduleCmd(rt))
	root.AddCommand(newProvidersCmd(rt))
	return root, rt
}

// Execute runs the command line until completion or SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, rt := newRootCmd()
	defer rt.close()
	return root.ExecuteContext(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
