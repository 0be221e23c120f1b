package routes

import (
	"github.com/gofiber/fiber/v3"

	"job-sync/internal/delivery/http/handler"
	"job-sync/internal/delivery/http/middleware"
)

type eventStream interface {
	Events(c fiber.Ctx) error
}

type Registry struct {
	health *handler.HealthHandler
	sync   *handler.SyncHandler
	scrape *handler.ScrapeHandler
	events eventStream
	guard  *middleware.SyncTokenMiddleware
}

func NewRegistry(health *handler.HealthHandler, sync *handler.SyncHandler, scrape *handler.ScrapeHandler, events eventStream, guard *middleware.SyncTokenMiddleware) *Registry {
	return &Registry{health: health, sync: sync, scrape: scrape, events: events, guard: guard}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil || r == nil {
		return
	}

	r.registerHealth(app)
	r.registerTriggers(app)
	r.registerEvents(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health != nil {
		app.Get("/health", r.health.Health)
	}
}

func (r *Registry) registerTriggers(app *fiber.App) {
	guard := r.guard.Middleware()
	if r.sync != nil {
		app.Get("/sync", guard, r.sync.Sync)
		app.Post("/sync", guard, r.sync.Sync)
	}
	if r.scrape != nil {
		app.Post("/scrape", guard, r.scrape.Scrape)
	}
}

func (r *Registry) registerEvents(app *fiber.App) {
	if r.events != nil {
		app.Get("/ws", r.events.Events)
	}
}
