package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"job-sync/internal/config"
	"job-sync/internal/database"
	dbpostgres "job-sync/internal/database/postgres"
	dbsqlite "job-sync/internal/database/sqlite"
	"job-sync/internal/infrastructure/cache"
	"job-sync/internal/notify"
	"job-sync/internal/provider"
	"job-sync/internal/render"
	"job-sync/internal/schedule"
	"job-sync/internal/scholarship"
	"job-sync/internal/store"
	"job-sync/internal/syncer"
	"job-sync/internal/ws"
	"job-sync/migrations"
)

// Container owns every long-lived dependency of the service and the CLI.
type Container struct {
	Config config.Config
	Logger *slog.Logger

	DB       *database.Lazy
	Store    *store.SQLGateway
	Cache    *cache.Redis
	Policy   *schedule.Policy
	Registry *provider.Registry
	Hub      *ws.Hub
	Reports  *ReportCache
	Telegram *notify.Telegram

	Syncer  *syncer.Orchestrator
	Scraper *scholarship.Scraper
}

func NewContainer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialect, err := store.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	policy, err := schedule.Load(cfg.Sync.ProvidersFile)
	if err != nil {
		return nil, err
	}
	applyCredentials(policy, cfg.Providers)

	sources, err := scholarship.LoadSources(cfg.Sync.ScholarshipSourcesFile)
	if err != nil {
		return nil, err
	}
	fallback, err := scholarship.DefaultFallback()
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Logger: logger, Policy: policy}

	c.DB = database.NewLazy(connector(cfg.Database), logger)
	c.Store = store.NewSQLGateway(c.DB, dialect)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c.Cache = cache.NewRedis(connectCtx, cfg.Redis.URL, logger)
	cancel()

	c.Registry = provider.Default(provider.Options{Logger: logger, Recorder: c.Cache})
	c.Hub = ws.NewHub(logger)
	c.Reports = NewReportCache(c.Cache, logger)

	tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	if err != nil {
		// notifications are optional
		logger.Warn("telegram disabled", "err", err)
	}
	c.Telegram = tg

	c.Syncer = syncer.New(policy, c.Registry, c.Store, syncer.Options{
		Logger:  logger,
		Workers: cfg.Sync.PersistWorkers,
		Usage:   c.Cache,
	})
	events := ws.NewPublisher(c.Hub)
	c.Syncer.AddSink(c.Reports)
	c.Syncer.AddSink(events)

	c.Scraper = scholarship.New(sources, fallback, c.Store, scholarship.Options{
		Logger:    logger,
		Renderers: renderers(cfg.Scraper, logger),
	})
	c.Scraper.AddSink(events)

	if tg != nil {
		c.Syncer.AddSink(tg)
		c.Scraper.AddSink(tg)
	}

	return c, nil
}

func connector(cfg config.DatabaseConfig) database.Connector {
	return func(ctx context.Context) (database.DB, error) {
		switch cfg.Driver {
		case config.DriverSQLite:
			db, err := dbsqlite.Open(ctx, cfg.URL)
			if err != nil {
				return nil, err
			}
			return db, nil
		default:
			return dbpostgres.Connect(ctx, cfg)
		}
	}
}

func applyCredentials(p *schedule.Policy, creds config.ProviderCredentials) {
	p.SetCredentials("jooble", schedule.Credentials{APIKey: creds.JoobleAPIKey})
	p.SetCredentials("adzuna", schedule.Credentials{AppID: creds.AdzunaAppID, AppKey: creds.AdzunaAppKey})
	p.SetCredentials("theirstack", schedule.Credentials{APIKey: creds.TheirStackAPIKey})
	p.SetCredentials("serpapi", schedule.Credentials{APIKey: creds.SerpAPIKey})
	p.SetCredentials("indianapi", schedule.Credentials{APIKey: creds.IndianAPIKey})
}

func renderers(cfg config.ScraperConfig, logger *slog.Logger) map[scholarship.RenderMode]render.Renderer {
	out := map[scholarship.RenderMode]render.Renderer{
		scholarship.RenderProxy: render.NewProxyRenderer(cfg.ProxyURL, cfg.APIKey, render.DefaultTimeout, logger),
	}
	if cfg.HeadlessRender {
		out[scholarship.RenderHeadless] = render.NewHeadlessRenderer(render.DefaultTimeout, logger)
	}
	return out
}

type sqlHandle interface {
	SQLDB() *sql.DB
}

// Migrate applies pending migrations. An unreachable store is reported but
// left for the lazy connection to retry.
func (c *Container) Migrate(ctx context.Context) error {
	return c.MigrateCommand(ctx, "up")
}

func (c *Container) MigrateCommand(ctx context.Context, command string) error {
	db, err := c.DB.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return c.migrate(db, command)
}

// EnsureSchema makes every new connection apply pending migrations before it
// is used, then dials once. An error means the store is not reachable yet;
// the schema is applied on the first connect that succeeds.
func (c *Container) EnsureSchema(ctx context.Context) error {
	c.DB.OnConnect(func(_ context.Context, db database.DB) error {
		if err := c.migrate(db, "up"); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
	if c.DB.Connected() {
		return c.Migrate(ctx)
	}
	if _, err := c.DB.Get(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (c *Container) migrate(db database.DB, command string) error {
	h, ok := db.(sqlHandle)
	if !ok || h.SQLDB() == nil {
		return errors.New("store handle does not expose database/sql")
	}
	return migrations.Command(h.SQLDB(), c.Config.Database.Driver, command)
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
