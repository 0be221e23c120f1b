package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"job-sync/internal/syncer"
)

const (
	lastReportKey = "sync:last_report"
	lastReportTTL = 7 * 24 * time.Hour
)

type jsonCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ReportCache keeps the most recent sync report in memory and in redis so
// /health can show it across restarts and replicas.
type ReportCache struct {
	cache  jsonCache
	logger *slog.Logger

	mu   sync.RWMutex
	last *syncer.Report
}

func NewReportCache(cache jsonCache, logger *slog.Logger) *ReportCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportCache{cache: cache, logger: logger.With("component", "reports")}
}

func (r *ReportCache) SyncCompleted(ctx context.Context, report syncer.Report) {
	r.mu.Lock()
	r.last = &report
	r.mu.Unlock()

	if r.cache == nil {
		return
	}
	if err := r.cache.SetJSON(ctx, lastReportKey, report, lastReportTTL); err != nil {
		r.logger.Warn("store last report failed", "err", err)
	}
}

func (r *ReportCache) LastReport(ctx context.Context) (syncer.Report, bool) {
	r.mu.RLock()
	last := r.last
	r.mu.RUnlock()
	if last != nil {
		return *last, true
	}

	if r.cache == nil {
		return syncer.Report{}, false
	}
	var report syncer.Report
	ok, err := r.cache.GetJSON(ctx, lastReportKey, &report)
	if err != nil {
		r.logger.Warn("load last report failed", "err", err)
		return syncer.Report{}, false
	}
	return report, ok
}
