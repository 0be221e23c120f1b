// Package syncer runs provider clients and persists what they return.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"job-sync/internal/domain/listing"
	"job-sync/internal/infrastructure/cache"
	"job-sync/internal/provider"
	"job-sync/internal/schedule"
	"job-sync/internal/store"
)

const DefaultPersistWorkers = 4

var ErrStoreUnavailable = errors.New("store unreachable")

// Request selects the providers of one run. API runs a single provider and
// Force bypasses its schedule check. All runs every enabled provider. With
// neither set only providers scheduled for the current hour run.
type Request struct {
	API   string
	Force bool
	All   bool
}

type UsageReader interface {
	Usage(ctx context.Context, provider string, at time.Time) (cache.Usage, error)
}

// Sink receives every completed report. Sinks must not block for long.
type Sink interface {
	SyncCompleted(ctx context.Context, r Report)
}

type Options struct {
	Logger  *slog.Logger
	Workers int
	Usage   UsageReader
	Sinks   []Sink
	Now     func() time.Time
}

type Orchestrator struct {
	policy   *schedule.Policy
	registry *provider.Registry
	gateway  store.Gateway
	usage    UsageReader
	sinks    []Sink
	workers  int
	logger   *slog.Logger
	now      func() time.Time
}

func New(policy *schedule.Policy, registry *provider.Registry, gateway store.Gateway, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultPersistWorkers
	}
	return &Orchestrator{
		policy:   policy,
		registry: registry,
		gateway:  gateway,
		usage:    opts.Usage,
		sinks:    opts.Sinks,
		workers:  workers,
		logger:   logger.With("component", "sync"),
		now:      now,
	}
}

// AddSink registers a report sink after construction.
func (o *Orchestrator) AddSink(s Sink) {
	if s != nil {
		o.sinks = append(o.sinks, s)
	}
}

// SyncJobs runs the selected providers one after another. Only an unreachable
// store fails the whole run; provider failures land in their report entry.
func (o *Orchestrator) SyncJobs(ctx context.Context, req Request) (Report, error) {
	started := o.now()
	report := Report{Timestamp: started.UTC(), Results: []ProviderResult{}}

	if err := o.gateway.Ping(ctx); err != nil {
		report.Duration = formatDuration(o.now().Sub(started))
		report.Error = fmt.Sprintf("%s: %v", ErrStoreUnavailable, err)
		o.logger.Error("sync aborted", "err", err)
		return report, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for _, sel := range o.selectProviders(req, started) {
		if sel.skip != "" {
			o.logger.Info("provider skipped", "provider", sel.name, "reason", sel.skip)
			report.Results = append(report.Results, ProviderResult{API: sel.name, Status: StatusSkipped, Reason: sel.skip})
			continue
		}
		report.Results = append(report.Results, o.runProvider(ctx, sel.name))
	}

	report.Success = true
	report.Duration = formatDuration(o.now().Sub(started))
	totals := report.Totals()
	o.logger.Info("sync finished",
		"providers", len(report.Results),
		"fetched", totals.Fetched,
		"new", totals.New,
		"updated", totals.Updated,
		"errors", totals.Errors,
		"duration", report.Duration,
	)

	for _, s := range o.sinks {
		s.SyncCompleted(ctx, report)
	}
	return report, nil
}

type selection struct {
	name string
	skip string
}

// selectProviders gates on the UTC hour; schedule times are UTC.
func (o *Orchestrator) selectProviders(req Request, now time.Time) []selection {
	hour := now.UTC().Hour()
	if api := strings.ToLower(strings.TrimSpace(req.API)); api != "" {
		cfg, err := o.policy.GetAPIConfig(api)
		switch {
		case err != nil:
			return []selection{{name: api, skip: "unknown provider"}}
		case !cfg.Enabled:
			return []selection{{name: api, skip: "provider disabled"}}
		case !req.Force && !o.policy.ShouldRunAPI(api, hour):
			return []selection{{name: api, skip: fmt.Sprintf("not scheduled for hour %d (use force=true)", hour)}}
		}
		return []selection{{name: api}}
	}

	var names []string
	if req.All {
		names = o.policy.GetEnabledAPIs()
	} else {
		names = o.policy.ScheduledAt(hour)
	}
	out := make([]selection, 0, len(names))
	for _, n := range names {
		out = append(out, selection{name: n})
	}
	return out
}

func (o *Orchestrator) runProvider(ctx context.Context, name string) ProviderResult {
	logger := o.logger.With("provider", name)
	client, ok := o.registry.Get(name)
	if !ok {
		return ProviderResult{API: name, Status: StatusSkipped, Reason: "no client registered"}
	}
	cfg, err := o.policy.GetAPIConfig(name)
	if err != nil {
		return ProviderResult{API: name, Status: StatusSkipped, Reason: "unknown provider"}
	}

	started := o.now()
	logger.Info("provider started")

	fetched, err := fetch(ctx, client, cfg)
	if err != nil {
		logger.Error("provider failed", "err", err)
		return ProviderResult{API: name, Status: StatusError, Error: err.Error()}
	}

	unique, dups := dedupe(fetched)
	stats := o.persist(ctx, logger, unique)
	stats.Fetched = len(fetched)
	stats.Duplicates = dups

	logger.Info("provider finished",
		"fetched", stats.Fetched,
		"new", stats.New,
		"updated", stats.Updated,
		"errors", stats.Errors,
		"duplicates", stats.Duplicates,
		"duration", o.now().Sub(started),
	)
	o.checkUsage(ctx, logger, cfg)
	return ProviderResult{API: name, Status: StatusSuccess, Stats: &stats}
}

func fetch(ctx context.Context, client provider.Client, cfg schedule.ProviderConfig) (out []listing.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return client.FetchJobs(ctx, cfg)
}

// dedupe keeps the first listing per remote id.
func dedupe(in []listing.Listing) ([]listing.Listing, int) {
	seen := make(map[string]struct{}, len(in))
	out := make([]listing.Listing, 0, len(in))
	for _, l := range in {
		if _, ok := seen[l.RemoteID]; ok {
			continue
		}
		seen[l.RemoteID] = struct{}{}
		out = append(out, l)
	}
	return out, len(in) - len(out)
}

// persist upserts a deduplicated batch. Remote ids are distinct so the
// gateway can take them concurrently.
func (o *Orchestrator) persist(ctx context.Context, logger *slog.Logger, batch []listing.Listing) Stats {
	var stats Stats
	if len(batch) == 0 {
		return stats
	}

	pool := newWorkerPool(o.workers, o.workers)
	results := pool.run(ctx)

	go func() {
		defer pool.close()
		for _, l := range batch {
			l := l
			ok := pool.submit(ctx, func(ctx context.Context) (bool, error) {
				res, err := o.gateway.Upsert(ctx, l)
				if err != nil {
					logger.Warn("upsert failed", "remote_id", l.RemoteID, "err", err)
					return false, err
				}
				return res.Created, nil
			})
			if !ok {
				return
			}
		}
	}()

	handled := 0
	for r := range results {
		handled++
		switch {
		case r.err != nil:
			stats.Errors++
		case r.created:
			stats.New++
		default:
			stats.Updated++
		}
	}
	// Listings never submitted because ctx ended count as errors.
	stats.Errors += len(batch) - handled
	return stats
}

func (o *Orchestrator) checkUsage(ctx context.Context, logger *slog.Logger, cfg schedule.ProviderConfig) {
	if o.usage == nil {
		return
	}
	u, err := o.usage.Usage(ctx, cfg.Name, o.now())
	if err != nil {
		logger.Debug("usage lookup failed", "err", err)
		return
	}
	over := func(window string, used int64, limit int) {
		if limit > 0 && used > int64(limit) {
			logger.Warn("provider over quota", "window", window, "used", used, "limit", limit)
		}
	}
	over("hour", u.Hour, cfg.Limits.PerHour)
	over("day", u.Day, cfg.Limits.PerDay)
	over("month", u.Month, cfg.Limits.PerMonth)
}
