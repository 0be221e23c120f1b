package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/go-cmp/cmp"

	"job-sync/internal/delivery/http/handler"
	"job-sync/internal/delivery/http/middleware"
	"job-sync/internal/infrastructure/cache"
	"job-sync/internal/schedule"
	"job-sync/internal/scholarship"
	"job-sync/internal/syncer"
)

var fixedNow = time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

type fakeSyncer struct {
	got    []syncer.Request
	report syncer.Report
	err    error
	panics bool
}

func (f *fakeSyncer) SyncJobs(ctx context.Context, req syncer.Request) (syncer.Report, error) {
	if f.panics {
		panic("boom")
	}
	f.got = append(f.got, req)
	return f.report, f.err
}

type fakeScraper struct {
	stats scholarship.Stats
	err   error
}

func (f *fakeScraper) Run(ctx context.Context) (scholarship.Stats, error) {
	return f.stats, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeUsage struct{}

func (fakeUsage) Usage(ctx context.Context, provider string, at time.Time) (cache.Usage, error) {
	if provider == "beta" {
		return cache.Usage{}, errors.New("redis down")
	}
	return cache.Usage{Hour: 2, Day: 5, Month: 40}, nil
}

type fakeLastSync struct{ report syncer.Report }

func (f fakeLastSync) LastReport(ctx context.Context) (syncer.Report, bool) {
	return f.report, true
}

const testTable = `
providers:
  - name: alpha
    enabled: true
    limits: { per_month: 500, per_day: 16, per_hour: 4 }
    schedule:
      cron: "0 6 * * *"
      times: ["06:00"]
  - name: beta
    enabled: false
    schedule:
      cron: "0 12 * * *"
      times: ["12:00"]
`

type testDeps struct {
	syncer  *fakeSyncer
	scraper *fakeScraper
	store   fakePinger
	token   string
}

func newTestApp(t *testing.T, d testDeps) *fiber.App {
	t.Helper()
	policy, err := schedule.Parse([]byte(testTable))
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(logger).Middleware())
	app.Use(middleware.NewAccessLogMiddleware(logger).Middleware())

	health := handler.NewHealthHandler(d.store, policy, handler.HealthOptions{
		Usage:    fakeUsage{},
		LastSync: fakeLastSync{report: syncer.Report{Success: true, Duration: "5ms"}},
		Logger:   logger,
		Now:      func() time.Time { return fixedNow },
	})
	NewRegistry(
		health,
		handler.NewSyncHandler(d.syncer),
		handler.NewScrapeHandler(d.scraper),
		nil,
		middleware.NewSyncTokenMiddleware(d.token),
	).Register(app)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any, http.Header) {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp.StatusCode, out, resp.Header
}

func TestSync_QueryParameters(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
		want syncer.Request
	}{
		{
			name: "default mode",
			req:  httptest.NewRequest(http.MethodGet, "/sync", nil),
			want: syncer.Request{},
		},
		{
			name: "explicit forced",
			req:  httptest.NewRequest(http.MethodGet, "/sync?api=Jooble&force=true", nil),
			want: syncer.Request{API: "jooble", Force: true},
		},
		{
			name: "all via post body",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"all":true}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			}(),
			want: syncer.Request{All: true},
		},
		{
			name: "query overrides body",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/sync?api=adzuna", strings.NewReader(`{"api":"jooble","force":true}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			}(),
			want: syncer.Request{API: "adzuna", Force: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSyncer{report: syncer.Report{
				Success:  true,
				Duration: "12ms",
				Results: []syncer.ProviderResult{
					{API: "jooble", Status: syncer.StatusSuccess, Stats: &syncer.Stats{Fetched: 3, New: 3}},
				},
			}}
			app := newTestApp(t, testDeps{syncer: fs, scraper: &fakeScraper{}})

			status, body, _ := do(t, app, tt.req)
			if status != fiber.StatusOK {
				t.Fatalf("expected 200, got %d body=%v", status, body)
			}
			if body["success"] != true || body["duration"] != "12ms" {
				t.Fatalf("unexpected body %v", body)
			}
			results := body["results"].([]any)
			first := results[0].(map[string]any)
			if first["api"] != "jooble" || first["stats"].(map[string]any)["new"].(float64) != 3 {
				t.Fatalf("unexpected results %v", results)
			}
			if diff := cmp.Diff([]syncer.Request{tt.want}, fs.got); diff != "" {
				t.Fatalf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSync_InvalidFlag(t *testing.T) {
	fs := &fakeSyncer{}
	app := newTestApp(t, testDeps{syncer: fs, scraper: &fakeScraper{}})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/sync?force=maybe", nil))
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["success"] != false || body["error"] != "invalid force parameter" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(fs.got) != 0 {
		t.Fatalf("sync must not run on invalid input")
	}
}

func TestSync_StoreUnavailable(t *testing.T) {
	fs := &fakeSyncer{err: fmt.Errorf("%w: dial tcp: refused", syncer.ErrStoreUnavailable)}
	app := newTestApp(t, testDeps{syncer: fs, scraper: &fakeScraper{}})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/sync", nil))
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "store unreachable") {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestSync_UnexpectedErrorIsHidden(t *testing.T) {
	fs := &fakeSyncer{err: errors.New("password=hunter2")}
	app := newTestApp(t, testDeps{syncer: fs, scraper: &fakeScraper{}})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/sync", nil))
	if status != fiber.StatusInternalServerError || body["error"] != "sync failed" {
		t.Fatalf("unexpected response %d %v", status, body)
	}
}

func TestSync_PanicRecovered(t *testing.T) {
	app := newTestApp(t, testDeps{syncer: &fakeSyncer{panics: true}, scraper: &fakeScraper{}})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/sync", nil))
	if status != fiber.StatusInternalServerError || body["error"] != "internal server error" {
		t.Fatalf("unexpected response %d %v", status, body)
	}
}

func TestSyncToken(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{name: "missing", wantStatus: fiber.StatusUnauthorized, wantError: "missing sync token"},
		{name: "wrong", header: "nope", wantStatus: fiber.StatusUnauthorized, wantError: "invalid sync token"},
		{name: "valid", header: "s3cret", wantStatus: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSyncer{report: syncer.Report{Success: true}}
			app := newTestApp(t, testDeps{syncer: fs, scraper: &fakeScraper{}, token: "s3cret"})

			req := httptest.NewRequest(http.MethodGet, "/sync", nil)
			if tt.header != "" {
				req.Header.Set(middleware.HeaderSyncToken, tt.header)
			}
			status, body, _ := do(t, app, req)
			if status != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%v", tt.wantStatus, status, body)
			}
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Fatalf("unexpected error %v", body["error"])
			}
		})
	}
}

func TestHealth_Healthy(t *testing.T) {
	app := newTestApp(t, testDeps{syncer: &fakeSyncer{}, scraper: &fakeScraper{}})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "healthy" || body["mongodb"] != "connected" || body["database"] != "connected" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["timestamp"] != "2025-03-10T05:00:00Z" {
		t.Fatalf("unexpected timestamp %v", body["timestamp"])
	}

	apis := body["apis"].([]any)
	if len(apis) != 2 {
		t.Fatalf("expected 2 apis, got %v", apis)
	}
	alpha := apis[0].(map[string]any)
	if alpha["name"] != "alpha" || alpha["enabled"] != true || alpha["nextRun"] != "2025-03-10T06:00:00Z" {
		t.Fatalf("unexpected alpha %v", alpha)
	}
	if alpha["usage"].(map[string]any)["month"].(float64) != 40 {
		t.Fatalf("unexpected usage %v", alpha["usage"])
	}
	if alpha["limits"].(map[string]any)["perDay"].(float64) != 16 {
		t.Fatalf("unexpected limits %v", alpha["limits"])
	}

	beta := apis[1].(map[string]any)
	if beta["enabled"] != false || beta["nextRun"] != nil {
		t.Fatalf("disabled provider should have no next run: %v", beta)
	}
	if _, ok := beta["usage"]; ok {
		t.Fatalf("usage should be omitted when the ledger fails: %v", beta)
	}

	if body["lastSync"].(map[string]any)["duration"] != "5ms" {
		t.Fatalf("unexpected lastSync %v", body["lastSync"])
	}
}

func TestHealth_StoreDown(t *testing.T) {
	app := newTestApp(t, testDeps{
		syncer:  &fakeSyncer{},
		scraper: &fakeScraper{},
		store:   fakePinger{err: errors.New("connection refused")},
	})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "unhealthy" || body["mongodb"] != "disconnected" || body["database"] != "disconnected" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestScrape(t *testing.T) {
	sc := &fakeScraper{stats: scholarship.Stats{
		RunID:    "run-1",
		Total:    10,
		Inserted: 6,
		Updated:  4,
		Sources:  map[string]scholarship.SourceStats{"buddy4study": {Fallback: true}},
	}}
	app := newTestApp(t, testDeps{syncer: &fakeSyncer{}, scraper: sc})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/scrape", nil))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["success"] != true || body["message"] != "scrape completed" {
		t.Fatalf("unexpected body %v", body)
	}
	stats := body["stats"].(map[string]any)
	if stats["total"].(float64) != 10 || stats["inserted"].(float64) != 6 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestScrape_StoreUnavailable(t *testing.T) {
	sc := &fakeScraper{err: fmt.Errorf("%w: timeout", scholarship.ErrStoreUnavailable)}
	app := newTestApp(t, testDeps{syncer: &fakeSyncer{}, scraper: sc})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/scrape", nil))
	if status != fiber.StatusInternalServerError || body["success"] != false {
		t.Fatalf("unexpected response %d %v", status, body)
	}
}

func TestAccessLog_RequestID(t *testing.T) {
	app := newTestApp(t, testDeps{syncer: &fakeSyncer{}, scraper: &fakeScraper{}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	_, _, hdr := do(t, app, req)
	if got := hdr.Get(middleware.HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	_, _, hdr = do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if hdr.Get(middleware.HeaderRequestID) == "" {
		t.Fatalf("expected generated request id")
	}
}
