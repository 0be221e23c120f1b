package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"job-sync/internal/syncer"
)

const (
	defaultSyncSpec   = "@hourly"
	defaultScrapeSpec = "0 3 * * *"

	syncLockKey   = "lock:sync"
	scrapeLockKey = "lock:scrape"
)

// cronLogger routes robfig/cron logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}

type jobs struct {
	sync   func(ctx context.Context) error
	scrape func(ctx context.Context) error
}

// newScheduler registers the sync job on syncSpec and, when scrapeSpec is
// not empty, the scrape job on scrapeSpec. Specs are evaluated in UTC.
func newScheduler(ctx context.Context, logger *slog.Logger, syncSpec, scrapeSpec string, j jobs) (*cron.Cron, error) {
	cl := cronLogger{logger: logger.With("component", "scheduler")}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	run := func(name string, fn func(context.Context) error) func() {
		return func() {
			started := time.Now()
			if err := fn(ctx); err != nil {
				cl.logger.Error("scheduled run failed", "job", name, "err", err)
				return
			}
			cl.logger.Info("scheduled run finished", "job", name, "duration", time.Since(started))
		}
	}

	if _, err := c.AddFunc(syncSpec, run("sync", j.sync)); err != nil {
		return nil, fmt.Errorf("sync schedule %q: %w", syncSpec, err)
	}
	if scrapeSpec != "" {
		if _, err := c.AddFunc(scrapeSpec, run("scrape", j.scrape)); err != nil {
			return nil, fmt.Errorf("scrape schedule %q: %w", scrapeSpec, err)
		}
	}
	return c, nil
}

func newScheduleCmd(rt *runtime) *cobra.Command {
	var (
		syncSpec   string
		scrapeSpec string
		runNow     bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run syncs and scrapes on a cron cadence until interrupted",
		Long: `Run the orchestrator in default mode on every tick of --sync-cron so each
provider fires at the hours listed in its schedule. Scholarship scraping
runs on --scrape-cron (empty disables it). When redis is configured a lock
keeps concurrent schedulers from overlapping.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt.ensureSchema(ctx)
			c := rt.container
			logger := rt.logger

			j := jobs{
				sync: func(ctx context.Context) error {
					ran, err := c.RunLocked(ctx, syncLockKey, time.Hour, func(ctx context.Context) error {
						_, err := c.Syncer.SyncJobs(ctx, syncer.Request{})
						return err
					})
					if err == nil && !ran {
						logger.Info("sync already running elsewhere, skipped")
					}
					return err
				},
				scrape: func(ctx context.Context) error {
					ran, err := c.RunLocked(ctx, scrapeLockKey, time.Hour, func(ctx context.Context) error {
						_, err := c.Scraper.Run(ctx)
						return err
					})
					if err == nil && !ran {
						logger.Info("scrape already running elsewhere, skipped")
					}
					return err
				},
			}

			sched, err := newScheduler(ctx, logger, syncSpec, scrapeSpec, j)
			if err != nil {
				return err
			}

			hubCtx, stopHub := context.WithCancel(ctx)
			defer stopHub()
			go c.Hub.Run(hubCtx)

			if runNow {
				go func() {
					if err := j.sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("initial sync failed", "err", err)
					}
				}()
			}

			sched.Start()
			logger.Info("scheduler started", "sync", syncSpec, "scrape", scrapeSpec)

			<-ctx.Done()
			stopped := sched.Stop()
			select {
			case <-stopped.Done():
			case <-time.After(30 * time.Second):
				logger.Warn("scheduler stop timed out")
			}
			logger.Info("scheduler stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&syncSpec, "sync-cron", defaultSyncSpec, "cron spec for default-mode syncs")
	cmd.Flags().StringVar(&scrapeSpec, "scrape-cron", defaultScrapeSpec, "cron spec for scholarship scrapes, empty to disable")
	cmd.Flags().BoolVar(&runNow, "now", false, "run one sync immediately")
	return cmd
}
