package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_NAME", "APP_ENV", "HTTP_PORT", "STORE_DRIVER", "DATABASE_URL", "REDIS_URL",
		"LOG_LEVEL", "LOG_FILE", "PROVIDERS_FILE", "SCHOLARSHIP_SOURCES_FILE", "SYNC_TOKEN",
		"PERSIST_WORKERS", "JOOBLE_API_KEY", "ADZUNA_APP_ID", "ADZUNA_APP_KEY",
		"THEIRSTACK_API_KEY", "SERPAPI_API_KEY", "INDIANAPI_API_KEY", "SCRAPER_API_KEY",
		"SCRAPER_PROXY_URL", "HEADLESS_RENDER", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"DB_CONNECT_TIMEOUT", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_MAX_CONN_LIFETIME",
		"DB_MAX_CONN_IDLE_TIME", "DB_HEALTH_CHECK_PERIOD",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	if !errors.Is(err, errMissingRequiredEnv) {
		t.Fatalf("expected errMissingRequiredEnv, got %v", err)
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL in error, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/jobs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Config{
		App:      AppConfig{AppName: "job-sync", Environment: "development", HTTPPort: "8080"},
		Database: DatabaseConfig{Driver: DriverPostgres, URL: "postgres://localhost/jobs"},
		Log:      LogConfig{Level: "info"},
		Sync:     SyncConfig{PersistWorkers: 4},
		Scraper:  ScraperConfig{ProxyURL: "https://api.scraperapi.com"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr())
	}
	if cfg.Telegram.Enabled() {
		t.Fatalf("telegram should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "file:jobs.db")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_CONNECT_TIMEOUT", "3")
	t.Setenv("DB_MAX_CONN_LIFETIME", "30m")
	t.Setenv("PERSIST_WORKERS", "8")
	t.Setenv("HEADLESS_RENDER", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("ADZUNA_APP_ID", "id")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ConnectTimeout != 3*time.Second || cfg.Database.PoolMaxConnLifetime != 30*time.Minute {
		t.Fatalf("unexpected durations: %+v", cfg.Database)
	}
	if cfg.Sync.PersistWorkers != 8 || !cfg.Scraper.HeadlessRender {
		t.Fatalf("unexpected sync/scraper config: %+v %+v", cfg.Sync, cfg.Scraper)
	}
	if !cfg.Telegram.Enabled() || cfg.Telegram.ChatID != -1001 {
		t.Fatalf("unexpected telegram config: %+v", cfg.Telegram)
	}
	if cfg.Providers.AdzunaAppID != "id" {
		t.Fatalf("credentials not loaded")
	}
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("STORE_DRIVER", "mongodb")
	t.Setenv("PERSIST_WORKERS", "many")

	_, err := Load()
	if !errors.Is(err, errInvalidEnv) {
		t.Fatalf("expected errInvalidEnv, got %v", err)
	}
	for _, k := range []string{"STORE_DRIVER", "PERSIST_WORKERS"} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("expected %s in error, got %v", k, err)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("sync finished", "provider", "jooble")
	logger.Debug("hidden")

	if !strings.Contains(stderr.String(), "provider=jooble") {
		t.Fatalf("expected text output, got %q", stderr.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(file.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", file.String(), err)
	}
	if rec["msg"] != "sync finished" || rec["provider"] != "jooble" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closeFn := SetupLogger(LogConfig{Level: "info", File: path})
	logger.Info("hello")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
