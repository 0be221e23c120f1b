package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"job-sync/internal/delivery/http/middleware"
	"job-sync/internal/delivery/http/response"
	"job-sync/internal/syncer"
)

type jobSyncer interface {
	SyncJobs(ctx context.Context, req syncer.Request) (syncer.Report, error)
}

// SyncRequest is read from the query string and, for POST, an optional JSON
// body. Query parameters win.
type SyncRequest struct {
	API   string `json:"api"`
	Force bool   `json:"force"`
	All   bool   `json:"all"`
}

type SyncHandler struct {
	syncer jobSyncer
}

func NewSyncHandler(s jobSyncer) *SyncHandler {
	return &SyncHandler{syncer: s}
}

func (h *SyncHandler) Sync(c fiber.Ctx) error {
	if h == nil || h.syncer == nil {
		return middleware.NewAppError(fiber.StatusServiceUnavailable, "sync is not configured", nil)
	}

	var req SyncRequest
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return middleware.NewAppError(fiber.StatusBadRequest, "invalid request body", err)
		}
	}
	if api := c.Query("api"); api != "" {
		req.API = api
	}
	for key, dst := range map[string]*bool{"force": &req.Force, "all": &req.All} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return middleware.NewAppError(fiber.StatusBadRequest, "invalid "+key+" parameter", err)
		}
		*dst = v
	}

	report, err := h.syncer.SyncJobs(c.Context(), syncer.Request{
		API:   strings.ToLower(strings.TrimSpace(req.API)),
		Force: req.Force,
		All:   req.All,
	})
	if err != nil {
		if errors.Is(err, syncer.ErrStoreUnavailable) {
			return response.Error(c, fiber.StatusInternalServerError, err.Error())
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, "sync failed", err)
	}
	return response.JSON(c, fiber.StatusOK, report)
}
