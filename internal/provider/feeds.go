package provider

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/schedule"
)

// Feeds ingests RSS/Atom job boards. No credentials are needed.
type Feeds struct {
	base
}

func NewFeeds(opts Options) *Feeds {
	return &Feeds{base: newBase("feeds", opts)}
}

func (f *Feeds) FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error) {
	urls := nonEmpty(cfg.Feeds)
	if len(urls) == 0 {
		return nil, ErrNoQueries
	}
	queries := make([]query, 0, len(urls))
	for _, u := range urls {
		queries = append(queries, query{term: u})
	}

	parser := gofeed.NewParser()
	parser.Client = f.httpClient(cfg)
	parser.UserAgent = userAgent

	return f.runQueries(ctx, cfg, queries, func(ctx context.Context, q query) ([]normalize.Input, error) {
		feed, err := parser.ParseURLWithContext(q.term, ctx)
		if err != nil {
			return nil, err
		}
		out := make([]normalize.Input, 0, len(feed.Items))
		for _, item := range feed.Items {
			out = append(out, feedItemInput(feed, item))
		}
		return out, nil
	}), nil
}

// feedItemInput maps a feed entry. Boards like WeWorkRemotely title entries
// "Company: Role", which is split when no author is present.
func feedItemInput(feed *gofeed.Feed, item *gofeed.Item) normalize.Input {
	title := strings.TrimSpace(item.Title)
	company := ""
	if item.Author != nil {
		company = strings.TrimSpace(item.Author.Name)
	}
	if company == "" {
		if i := strings.Index(title, ": "); i > 0 {
			company, title = strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+2:])
		}
	}

	id := strings.TrimSpace(item.GUID)
	if id == "" {
		id = strings.TrimSpace(item.Link)
	}
	if id != "" {
		id = normalize.HashID(id)
	}

	desc := item.Content
	if strings.TrimSpace(desc) == "" {
		desc = item.Description
	}

	posted := ""
	if item.PublishedParsed != nil {
		posted = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		posted = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	location := ""
	if ext, ok := item.Extensions[""]; ok {
		if vals, ok := ext["region"]; ok && len(vals) > 0 {
			location = vals[0].Value
		}
	}
	if location == "" && feed != nil && strings.Contains(strings.ToLower(feed.Title), "remote") {
		location = "Remote"
	}

	return normalize.Input{
		NativeID:    id,
		Title:       title,
		Company:     company,
		Location:    location,
		Description: desc,
		URL:         item.Link,
		PostedAt:    posted,
		Tags:        item.Categories,
	}
}
