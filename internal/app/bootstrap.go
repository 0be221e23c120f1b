package app

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"job-sync/internal/config"
	"job-sync/internal/delivery/http/handler"
	"job-sync/internal/delivery/http/middleware"
	"job-sync/internal/delivery/http/routes"
	"job-sync/internal/ws"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// New builds the fiber app over an existing container.
func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	registerGlobalMiddleware(f, c.Logger)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap wires the container, ensures the schema and starts the websocket
// hub. The cleanup func stops the hub and closes the container.
func Bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if err := c.EnsureSchema(ctx); err != nil {
		logger.Warn("store not reachable at startup, schema deferred to first connect", "err", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	go c.Hub.Run(hubCtx)

	cleanup := func() error {
		stopHub()
		return c.Close()
	}
	return New(c), cleanup, nil
}

func registerGlobalMiddleware(app *fiber.App, logger *slog.Logger) {
	if app == nil {
		return
	}

	errMw := middleware.NewErrorMiddleware(logger)
	app.Use(errMw.Middleware())

	accessMw := middleware.NewAccessLogMiddleware(logger)
	app.Use(accessMw.Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil || c == nil {
		return
	}

	health := handler.NewHealthHandler(c.Store, c.Policy, handler.HealthOptions{
		Usage:    c.Cache,
		LastSync: c.Reports,
		Logger:   c.Logger,
	})
	routes.NewRegistry(
		health,
		handler.NewSyncHandler(c.Syncer),
		handler.NewScrapeHandler(c.Scraper),
		ws.NewHandler(c.Hub),
		middleware.NewSyncTokenMiddleware(c.Config.Sync.Token),
	).Register(app)
}
