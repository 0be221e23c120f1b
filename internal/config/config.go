package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Sync      SyncConfig
	Providers ProviderCredentials
	Scraper   ScraperConfig
	Telegram  TelegramConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	Driver string
	URL    string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level string
	File  string
}

type SyncConfig struct {
	ProvidersFile          string
	ScholarshipSourcesFile string
	Token                  string
	PersistWorkers         int
}

type ProviderCredentials struct {
	JoobleAPIKey     string
	AdzunaAppID      string
	AdzunaAppKey     string
	TheirStackAPIKey string
	SerpAPIKey       string
	IndianAPIKey     string
}

type ScraperConfig struct {
	ProxyURL       string
	APIKey         string
	HeadlessRender bool
}

type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	var invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}
	optDefault := func(key, def string) string {
		if v := opt(key); v != "" {
			return v
		}
		return def
	}
	optInt := func(key string, def int) int {
		v := opt(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, key)
			return def
		}
		return n
	}
	optDuration := func(key string) time.Duration {
		v := opt(key)
		if v == "" {
			return 0
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// bare integers are seconds
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
		invalid = append(invalid, key)
		return 0
	}
	optBool := func(key string) bool {
		v := opt(key)
		if v == "" {
			return false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, key)
			return false
		}
		return b
	}

	cfg.App = AppConfig{
		AppName:     optDefault("APP_NAME", "job-sync"),
		Environment: optDefault("APP_ENV", "development"),
		HTTPPort:    optDefault("HTTP_PORT", "8080"),
	}

	cfg.Database = DatabaseConfig{
		Driver:                strings.ToLower(optDefault("STORE_DRIVER", DriverPostgres)),
		URL:                   req("DATABASE_URL"),
		ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT"),
		PoolMaxConns:          int32(optInt("DB_MAX_CONNS", 0)),
		PoolMinConns:          int32(optInt("DB_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   optDuration("DB_MAX_CONN_LIFETIME"),
		PoolMaxConnIdleTime:   optDuration("DB_MAX_CONN_IDLE_TIME"),
		PoolHealthCheckPeriod: optDuration("DB_HEALTH_CHECK_PERIOD"),
	}
	if cfg.Database.Driver != DriverPostgres && cfg.Database.Driver != DriverSQLite {
		invalid = append(invalid, "STORE_DRIVER")
	}

	cfg.Redis = RedisConfig{URL: opt("REDIS_URL")}

	cfg.Log = LogConfig{
		Level: optDefault("LOG_LEVEL", "info"),
		File:  opt("LOG_FILE"),
	}

	cfg.Sync = SyncConfig{
		ProvidersFile:          opt("PROVIDERS_FILE"),
		ScholarshipSourcesFile: opt("SCHOLARSHIP_SOURCES_FILE"),
		Token:                  opt("SYNC_TOKEN"),
		PersistWorkers:         optInt("PERSIST_WORKERS", 4),
	}
	if cfg.Sync.PersistWorkers <= 0 {
		cfg.Sync.PersistWorkers = 1
	}

	cfg.Providers = ProviderCredentials{
		JoobleAPIKey:     opt("JOOBLE_API_KEY"),
		AdzunaAppID:      opt("ADZUNA_APP_ID"),
		AdzunaAppKey:     opt("ADZUNA_APP_KEY"),
		TheirStackAPIKey: opt("THEIRSTACK_API_KEY"),
		SerpAPIKey:       opt("SERPAPI_API_KEY"),
		IndianAPIKey:     opt("INDIANAPI_API_KEY"),
	}

	cfg.Scraper = ScraperConfig{
		ProxyURL:       optDefault("SCRAPER_PROXY_URL", "https://api.scraperapi.com"),
		APIKey:         opt("SCRAPER_API_KEY"),
		HeadlessRender: optBool("HEADLESS_RENDER"),
	}

	cfg.Telegram = TelegramConfig{BotToken: opt("TELEGRAM_BOT_TOKEN")}
	if raw := opt("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			invalid = append(invalid, "TELEGRAM_CHAT_ID")
		}
		cfg.Telegram.ChatID = id
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func (c Config) ListenAddr() string {
	port := strings.TrimSpace(c.App.HTTPPort)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}
