package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"job-sync/internal/domain/listing"
	"job-sync/internal/infrastructure/cache"
	"job-sync/internal/provider"
	"job-sync/internal/schedule"
	"job-sync/internal/store"
)

var fixedNow = time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGateway struct {
	mu      sync.Mutex
	rows    map[string]listing.Listing
	pingErr error
	failIDs map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{rows: map[string]listing.Listing{}, failIDs: map[string]bool{}}
}

func (g *fakeGateway) Ping(ctx context.Context) error { return g.pingErr }

func (g *fakeGateway) Upsert(ctx context.Context, l listing.Listing) (store.UpsertResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failIDs[l.RemoteID] {
		return store.UpsertResult{}, fmt.Errorf("boom on %s", l.RemoteID)
	}
	_, exists := g.rows[l.RemoteID]
	g.rows[l.RemoteID] = l
	return store.UpsertResult{Created: !exists}, nil
}

func (g *fakeGateway) UpsertScholarship(ctx context.Context, l listing.Listing) (store.UpsertResult, error) {
	return store.UpsertResult{}, errors.New("not used")
}

type fakeClient struct {
	name  string
	out   []listing.Listing
	err   error
	panic bool
	calls int
}

func (c *fakeClient) Name() string { return c.name }

func (c *fakeClient) FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error) {
	c.calls++
	if c.panic {
		panic("nil map write")
	}
	return c.out, c.err
}

func jobs(source string, ids ...string) []listing.Listing {
	out := make([]listing.Listing, 0, len(ids))
	for _, id := range ids {
		out = append(out, listing.Listing{RemoteID: source + "_" + id, Title: "Job " + id, SourceAPI: source})
	}
	return out
}

func testPolicy(t *testing.T) *schedule.Policy {
	t.Helper()
	p, err := schedule.New([]schedule.ProviderConfig{
		{Name: "alpha", Enabled: true, Schedule: schedule.Cadence{Times: []string{"06:00", "18:00"}}},
		{Name: "beta", Enabled: true, Schedule: schedule.Cadence{Times: []string{"12:00"}}},
		{Name: "gamma", Enabled: true, Schedule: schedule.Cadence{Times: []string{"06:00"}}},
		{Name: "delta", Enabled: false, Schedule: schedule.Cadence{Times: []string{"06:00"}}},
	})
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func newTestOrchestrator(t *testing.T, gw store.Gateway, clients ...provider.Client) *Orchestrator {
	t.Helper()
	return New(testPolicy(t), provider.NewRegistry(clients...), gw, Options{
		Logger:  discardLogger(),
		Workers: 3,
		Now:     func() time.Time { return fixedNow },
	})
}

func statuses(r Report) map[string]Status {
	out := map[string]Status{}
	for _, res := range r.Results {
		out[res.API] = res.Status
	}
	return out
}

func TestSyncJobs_PartialFailureIsolation(t *testing.T) {
	gw := newFakeGateway()
	alpha := &fakeClient{name: "alpha", err: errors.New("upstream exploded")}
	beta := &fakeClient{name: "beta", out: jobs("beta", "1", "2")}
	gamma := &fakeClient{name: "gamma", panic: true}
	o := newTestOrchestrator(t, gw, alpha, beta, gamma)

	report, err := o.SyncJobs(context.Background(), Request{All: true})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !report.Success {
		t.Fatalf("expected success report")
	}
	want := map[string]Status{"alpha": StatusError, "beta": StatusSuccess, "gamma": StatusError}
	if diff := cmp.Diff(want, statuses(report)); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	res, _ := report.Result("alpha")
	if res.Error != "upstream exploded" {
		t.Fatalf("unexpected error message %q", res.Error)
	}
	res, _ = report.Result("gamma")
	if res.Error == "" {
		t.Fatalf("expected panic recorded as error")
	}
	res, _ = report.Result("beta")
	if diff := cmp.Diff(&Stats{Fetched: 2, New: 2}, res.Stats); diff != "" {
		t.Fatalf("beta stats mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncJobs_Modes(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want []ProviderResult
	}{
		{
			name: "scheduled hour",
			req:  Request{},
			want: []ProviderResult{
				{API: "alpha", Status: StatusSuccess, Stats: &Stats{}},
				{API: "gamma", Status: StatusSuccess, Stats: &Stats{}},
			},
		},
		{
			name: "all enabled",
			req:  Request{All: true},
			want: []ProviderResult{
				{API: "alpha", Status: StatusSuccess, Stats: &Stats{}},
				{API: "beta", Status: StatusSuccess, Stats: &Stats{}},
				{API: "gamma", Status: StatusSuccess, Stats: &Stats{}},
			},
		},
		{
			name: "explicit off schedule",
			req:  Request{API: "beta"},
			want: []ProviderResult{
				{API: "beta", Status: StatusSkipped, Reason: "not scheduled for hour 6 (use force=true)"},
			},
		},
		{
			name: "explicit forced",
			req:  Request{API: "Beta", Force: true},
			want: []ProviderResult{
				{API: "beta", Status: StatusSuccess, Stats: &Stats{}},
			},
		},
		{
			name: "explicit disabled",
			req:  Request{API: "delta", Force: true},
			want: []ProviderResult{
				{API: "delta", Status: StatusSkipped, Reason: "provider disabled"},
			},
		},
		{
			name: "explicit unknown",
			req:  Request{API: "monster"},
			want: []ProviderResult{
				{API: "monster", Status: StatusSkipped, Reason: "unknown provider"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrchestrator(t, newFakeGateway(),
				&fakeClient{name: "alpha"},
				&fakeClient{name: "beta"},
				&fakeClient{name: "gamma"},
				&fakeClient{name: "delta"},
			)
			report, err := o.SyncJobs(context.Background(), tc.req)
			if err != nil {
				t.Fatalf("sync: %v", err)
			}
			if diff := cmp.Diff(tc.want, report.Results); diff != "" {
				t.Fatalf("results mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSyncJobs_GatesOnUTCHour(t *testing.T) {
	// 06:30 UTC is 12:00 in India; only the 06:00 UTC providers are due.
	ist := time.FixedZone("IST", 5*3600+1800)
	o := New(testPolicy(t), provider.NewRegistry(
		&fakeClient{name: "alpha"},
		&fakeClient{name: "beta"},
		&fakeClient{name: "gamma"},
	), newFakeGateway(), Options{
		Logger: discardLogger(),
		Now:    func() time.Time { return fixedNow.In(ist) },
	})

	report, err := o.SyncJobs(context.Background(), Request{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	want := map[string]Status{"alpha": StatusSuccess, "gamma": StatusSuccess}
	if diff := cmp.Diff(want, statuses(report)); diff != "" {
		t.Fatalf("scheduled providers mismatch (-want +got):\n%s", diff)
	}

	report, err = o.SyncJobs(context.Background(), Request{API: "beta"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := report.Results[0].Reason; got != "not scheduled for hour 6 (use force=true)" {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestSyncJobs_DedupeAndRecordErrors(t *testing.T) {
	gw := newFakeGateway()
	gw.failIDs["alpha_3"] = true
	gw.rows["alpha_2"] = listing.Listing{RemoteID: "alpha_2"}

	batch := append(jobs("alpha", "1", "2", "3"), jobs("alpha", "1")...)
	o := newTestOrchestrator(t, gw, &fakeClient{name: "alpha", out: batch})

	report, err := o.SyncJobs(context.Background(), Request{API: "alpha"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	res, ok := report.Result("alpha")
	if !ok {
		t.Fatalf("missing alpha result")
	}
	want := &Stats{Fetched: 4, New: 1, Updated: 1, Errors: 1, Duplicates: 1}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("record errors must not fail the provider, got %s", res.Status)
	}
}

func TestSyncJobs_StoreUnreachableIsFatal(t *testing.T) {
	gw := newFakeGateway()
	gw.pingErr = store.ErrUnavailable
	client := &fakeClient{name: "alpha", out: jobs("alpha", "1")}
	o := newTestOrchestrator(t, gw, client)

	report, err := o.SyncJobs(context.Background(), Request{All: true})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if report.Success || report.Error == "" {
		t.Fatalf("expected failed report, got %+v", report)
	}
	if client.calls != 0 {
		t.Fatalf("providers must not run when the store is down")
	}
}

func TestSyncJobs_IdempotentSecondRun(t *testing.T) {
	gw := newFakeGateway()
	o := newTestOrchestrator(t, gw, &fakeClient{name: "alpha", out: jobs("alpha", "1", "2")})

	if _, err := o.SyncJobs(context.Background(), Request{API: "alpha"}); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	report, err := o.SyncJobs(context.Background(), Request{API: "alpha"})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	res, _ := report.Result("alpha")
	if diff := cmp.Diff(&Stats{Fetched: 2, Updated: 2}, res.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}

type recordingSink struct {
	reports []Report
}

func (s *recordingSink) SyncCompleted(ctx context.Context, r Report) {
	s.reports = append(s.reports, r)
}

type fakeUsage struct {
	calls int
}

func (u *fakeUsage) Usage(ctx context.Context, provider string, at time.Time) (cache.Usage, error) {
	u.calls++
	return cache.Usage{Hour: 99}, nil
}

func TestSyncJobs_SinksAndUsage(t *testing.T) {
	sink := &recordingSink{}
	usage := &fakeUsage{}
	o := New(testPolicy(t), provider.NewRegistry(&fakeClient{name: "alpha"}), newFakeGateway(), Options{
		Logger: discardLogger(),
		Usage:  usage,
		Sinks:  []Sink{sink},
		Now:    func() time.Time { return fixedNow },
	})
	if _, err := o.SyncJobs(context.Background(), Request{API: "alpha"}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(sink.reports) != 1 || len(sink.reports[0].Results) != 1 {
		t.Fatalf("expected one published report, got %+v", sink.reports)
	}
	if usage.calls != 1 {
		t.Fatalf("expected usage lookup after provider run, got %d", usage.calls)
	}
}

// A Jooble mock returning three records, one without a title, persists all
// three as new listings.
func TestSyncJobs_JoobleEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"totalCount":3,"jobs":[
			{"id":1,"title":"Senior React Developer","company":"Acme","snippet":"using Node.js and MongoDB","link":"https://jooble.org/1"},
			{"id":2,"title":"Backend Engineer","company":"Beta","snippet":"Go services","link":"https://jooble.org/2"},
			{"id":3,"company":"Gamma","snippet":"no title here","link":"https://jooble.org/3"}
		]}`)
	}))
	defer srv.Close()

	policy, err := schedule.New([]schedule.ProviderConfig{{
		Name:     "jooble",
		Enabled:  true,
		BaseURL:  srv.URL,
		Keywords: []string{"developer"},
		Schedule: schedule.Cadence{Times: []string{"06:00"}},
	}})
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	policy.SetCredentials("jooble", schedule.Credentials{APIKey: "k"})

	gw := newFakeGateway()
	registry := provider.NewRegistry(provider.NewJooble(provider.Options{Logger: discardLogger()}))
	o := New(policy, registry, gw, Options{Logger: discardLogger(), Now: func() time.Time { return fixedNow }})

	report, err := o.SyncJobs(context.Background(), Request{API: "jooble"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	res, _ := report.Result("jooble")
	if diff := cmp.Diff(&Stats{Fetched: 3, New: 3}, res.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if got := gw.rows["jooble_3"].Title; got != "Untitled Position" {
		t.Fatalf("expected default title, got %q", got)
	}
}

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	p := newWorkerPool(4, 0)
	results := p.run(context.Background())
	go func() {
		defer p.close()
		for i := 0; i < 20; i++ {
			i := i
			p.submit(context.Background(), func(ctx context.Context) (bool, error) {
				if i%5 == 0 {
					return false, errors.New("fail")
				}
				return i%2 == 0, nil
			})
		}
	}()

	var created, failed, total int
	for r := range results {
		total++
		if r.err != nil {
			failed++
		} else if r.created {
			created++
		}
	}
	if total != 20 || failed != 4 || created != 8 {
		t.Fatalf("unexpected tallies total=%d failed=%d created=%d", total, failed, created)
	}
}
