package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"job-sync/internal/delivery/http/response"
	"job-sync/internal/infrastructure/cache"
	"job-sync/internal/schedule"
	"job-sync/internal/syncer"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type usageReader interface {
	Usage(ctx context.Context, provider string, at time.Time) (cache.Usage, error)
}

type lastReportReader interface {
	LastReport(ctx context.Context) (syncer.Report, bool)
}

type APIHealth struct {
	Name    string          `json:"name"`
	Enabled bool            `json:"enabled"`
	NextRun *time.Time      `json:"nextRun"`
	Times   []string        `json:"times"`
	Limits  schedule.Limits `json:"limits"`
	Usage   *cache.Usage    `json:"usage,omitempty"`
}

// HealthResponse keeps the "mongodb" key existing consumers read; "database"
// carries the same value.
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	MongoDB   string         `json:"mongodb"`
	Database  string         `json:"database"`
	APIs      []APIHealth    `json:"apis"`
	LastSync  *syncer.Report `json:"lastSync,omitempty"`
}

type HealthOptions struct {
	Usage    usageReader
	LastSync lastReportReader
	Logger   *slog.Logger
	Now      func() time.Time
}

type HealthHandler struct {
	store    pinger
	policy   *schedule.Policy
	usage    usageReader
	lastSync lastReportReader
	logger   *slog.Logger
	now      func() time.Time
}

func NewHealthHandler(store pinger, policy *schedule.Policy, opts HealthOptions) *HealthHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &HealthHandler{
		store:    store,
		policy:   policy,
		usage:    opts.Usage,
		lastSync: opts.LastSync,
		logger:   logger.With("component", "health"),
		now:      now,
	}
}

// Health always answers 200; an unreachable store only flips status to
// unhealthy.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx := c.Context()
	now := h.now().UTC()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: now,
		APIs:      []APIHealth{},
	}

	storeState := "connected"
	if h.store == nil {
		resp.Status, storeState = "unhealthy", "disconnected"
	} else if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("store ping failed", "err", err)
		resp.Status, storeState = "unhealthy", "disconnected"
	}
	resp.MongoDB, resp.Database = storeState, storeState

	if h.policy != nil {
		for _, name := range h.policy.Names() {
			resp.APIs = append(resp.APIs, h.apiHealth(ctx, name, now))
		}
	}

	if h.lastSync != nil {
		if r, ok := h.lastSync.LastReport(ctx); ok {
			resp.LastSync = &r
		}
	}

	return response.JSON(c, fiber.StatusOK, resp)
}

func (h *HealthHandler) apiHealth(ctx context.Context, name string, now time.Time) APIHealth {
	pc, err := h.policy.GetAPIConfig(name)
	if err != nil {
		return APIHealth{Name: name}
	}
	out := APIHealth{
		Name:    name,
		Enabled: pc.Enabled,
		Times:   pc.Schedule.Times,
		Limits:  pc.Limits,
	}
	if next, err := h.policy.NextRun(name, now); err == nil && !next.IsZero() {
		out.NextRun = &next
	}
	if h.usage != nil {
		if u, err := h.usage.Usage(ctx, name, now); err == nil {
			out.Usage = &u
		}
	}
	return out
}
