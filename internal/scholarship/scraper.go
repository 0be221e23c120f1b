// Package scholarship scrapes scholarship and internship listings and falls
// back to curated datasets when a source yields nothing.
package scholarship

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/render"
	"job-sync/internal/store"
)

const (
	DefaultPageTimeout = 30 * time.Second
	fallbackSourceAPI  = "fallback"
)

var ErrStoreUnavailable = errors.New("store unreachable")

type SourceStats struct {
	Scraped  int  `json:"scraped"`
	Fallback bool `json:"fallback"`
	Errors   int  `json:"errors"`
}

type Stats struct {
	RunID    string                 `json:"runId"`
	Total    int                    `json:"total"`
	Inserted int                    `json:"inserted"`
	Updated  int                    `json:"updated"`
	Errors   int                    `json:"errors"`
	Duration string                 `json:"duration"`
	Sources  map[string]SourceStats `json:"sources"`
}

// Sink receives the stats of every completed run.
type Sink interface {
	ScrapeCompleted(ctx context.Context, s Stats)
}

type Options struct {
	Logger      *slog.Logger
	Sinks       []Sink
	Renderers   map[RenderMode]render.Renderer
	PageTimeout time.Duration
	Now         func() time.Time
}

type Scraper struct {
	sources     []Source
	fallback    Fallback
	gateway     store.Gateway
	renderers   map[RenderMode]render.Renderer
	sinks       []Sink
	pageTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func New(sources []Source, fallback Fallback, gateway store.Gateway, opts Options) *Scraper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.PageTimeout
	if timeout <= 0 {
		timeout = DefaultPageTimeout
	}
	return &Scraper{
		sources:     sources,
		fallback:    fallback,
		gateway:     gateway,
		renderers:   opts.Renderers,
		sinks:       opts.Sinks,
		pageTimeout: timeout,
		logger:      logger.With("component", "scholarship"),
		now:         now,
	}
}

func (s *Scraper) AddSink(sink Sink) {
	if sink != nil {
		s.sinks = append(s.sinks, sink)
	}
}

// Run scrapes every source in order and upserts what it finds. Each curated
// dataset is applied at most once per run even when several sources of the
// same kind come back empty.
func (s *Scraper) Run(ctx context.Context) (Stats, error) {
	started := s.now()
	stats := Stats{RunID: uuid.NewString(), Sources: make(map[string]SourceStats, len(s.sources))}

	if err := s.gateway.Ping(ctx); err != nil {
		stats.Duration = fmt.Sprintf("%dms", s.now().Sub(started).Milliseconds())
		return stats, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	logger := s.logger.With("run_id", stats.RunID)
	usedFallback := map[listing.Kind]bool{}

	for _, src := range s.sources {
		srcLog := logger.With("source", src.Name)
		ss := SourceStats{}

		items, fetchErrs := s.scrapeSource(ctx, srcLog, src)
		ss.Errors += fetchErrs
		ss.Scraped = len(items)

		sourceAPI := src.Name
		if len(items) == 0 {
			ss.Fallback = true
			if usedFallback[src.Kind] {
				srcLog.Warn("no live items, curated dataset already applied this run")
				stats.Sources[src.Name] = ss
				continue
			}
			items = s.fallback[src.Kind]
			usedFallback[src.Kind] = true
			sourceAPI = fallbackSourceAPI
			srcLog.Warn("no live items, using curated dataset", "kind", src.Kind, "items", len(items))
		}

		ss.Errors += s.upsertItems(ctx, srcLog, src.Kind, sourceAPI, items, &stats)
		stats.Sources[src.Name] = ss
	}

	stats.Duration = fmt.Sprintf("%dms", s.now().Sub(started).Milliseconds())
	logger.Info("scrape finished",
		"total", stats.Total,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)
	for _, sink := range s.sinks {
		sink.ScrapeCompleted(ctx, stats)
	}
	return stats, nil
}

// SeedFallback upserts every curated dataset without scraping, so a fresh
// store has listings before the first scrape.
func (s *Scraper) SeedFallback(ctx context.Context) (Stats, error) {
	started := s.now()
	stats := Stats{RunID: uuid.NewString(), Sources: map[string]SourceStats{}}

	if err := s.gateway.Ping(ctx); err != nil {
		stats.Duration = fmt.Sprintf("%dms", s.now().Sub(started).Milliseconds())
		return stats, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	logger := s.logger.With("run_id", stats.RunID)
	for _, kind := range []listing.Kind{listing.KindScholarship, listing.KindInternship} {
		items := s.fallback[kind]
		if len(items) == 0 {
			continue
		}
		errs := s.upsertItems(ctx, logger, kind, fallbackSourceAPI, items, &stats)
		stats.Sources[fallbackSourceAPI+"_"+string(kind)] = SourceStats{Fallback: true, Errors: errs}
	}

	stats.Duration = fmt.Sprintf("%dms", s.now().Sub(started).Milliseconds())
	logger.Info("curated datasets seeded", "total", stats.Total, "inserted", stats.Inserted, "updated", stats.Updated)
	return stats, nil
}

// upsertItems stores items and returns how many failed.
func (s *Scraper) upsertItems(ctx context.Context, logger *slog.Logger, kind listing.Kind, sourceAPI string, items []Item, stats *Stats) int {
	errs := 0
	for _, it := range items {
		l := s.toListing(kind, sourceAPI, it)
		res, err := s.gateway.UpsertScholarship(ctx, l)
		stats.Total++
		if err != nil {
			errs++
			stats.Errors++
			logger.Warn("upsert failed", "title", l.Title, "err", err)
			continue
		}
		if res.Created {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}
	return errs
}

// scrapeSource returns live items and the number of pages that failed.
func (s *Scraper) scrapeSource(ctx context.Context, logger *slog.Logger, src Source) ([]Item, int) {
	var (
		items []Item
		errs  int
	)
	for _, pageURL := range src.pageURLs() {
		page, err := s.scrapePage(ctx, src, pageURL)
		if err != nil {
			errs++
			logger.Warn("page failed", "url", pageURL, "err", err)
			continue
		}
		logger.Debug("page scraped", "url", pageURL, "items", len(page))
		items = append(items, page...)
	}
	return items, errs
}

func (s *Scraper) scrapePage(ctx context.Context, src Source, pageURL string) ([]Item, error) {
	if src.Render == RenderNone {
		return collectDirect(ctx, src, pageURL, s.pageTimeout)
	}
	r, ok := s.renderers[src.Render]
	if !ok || r == nil {
		return nil, fmt.Errorf("no %s renderer configured", src.Render)
	}
	html, err := r.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parseHTML(html, src, pageURL)
}

func (s *Scraper) toListing(kind listing.Kind, sourceAPI string, it Item) listing.Listing {
	jobTypeHint := ""
	if kind == listing.KindInternship {
		jobTypeHint = "internship"
	}
	desc := it.Description
	if desc == "" {
		desc = it.Eligibility
	}

	l := normalize.ToListing(sourceAPI, normalize.Input{
		Kind:        kind,
		Title:       it.Title,
		Company:     it.Provider,
		Location:    it.Location,
		Description: desc,
		SalaryText:  it.Amount,
		JobTypeHint: jobTypeHint,
		URL:         it.Link,
		ExpiresAt:   it.Deadline,
	}, s.now())

	l.Amount = strings.TrimSpace(it.Amount)
	l.Eligibility = strings.TrimSpace(it.Eligibility)
	l.Domain, l.Category = normalize.Categorize(strings.Join([]string{it.Title, it.Eligibility, it.Description}, " "))
	return l
}
