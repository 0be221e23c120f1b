package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"job-sync/internal/delivery/http/middleware"
	"job-sync/internal/delivery/http/response"
	"job-sync/internal/scholarship"
)

type scholarshipScraper interface {
	Run(ctx context.Context) (scholarship.Stats, error)
}

type ScrapeResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Stats   scholarship.Stats `json:"stats"`
}

type ScrapeHandler struct {
	scraper scholarshipScraper
}

func NewScrapeHandler(s scholarshipScraper) *ScrapeHandler {
	return &ScrapeHandler{scraper: s}
}

func (h *ScrapeHandler) Scrape(c fiber.Ctx) error {
	if h == nil || h.scraper == nil {
		return middleware.NewAppError(fiber.StatusServiceUnavailable, "scraper is not configured", nil)
	}

	stats, err := h.scraper.Run(c.Context())
	if err != nil {
		if errors.Is(err, scholarship.ErrStoreUnavailable) {
			return response.Error(c, fiber.StatusInternalServerError, err.Error())
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, "scrape failed", err)
	}
	return response.JSON(c, fiber.StatusOK, ScrapeResponse{
		Success: true,
		Message: "scrape completed",
		Stats:   stats,
	})
}
