package provider

import (
	"context"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/schedule"
)

type fetchFunc func(ctx context.Context, q query) ([]normalize.Input, error)

// runQueries issues one request per query, sequentially, sleeping cfg.Delay
// between them. A failed request is logged and skipped.
func (b base) runQueries(ctx context.Context, cfg schedule.ProviderConfig, queries []query, fetch fetchFunc) []listing.Listing {
	c := newCollector()
	for i, q := range queries {
		if i > 0 {
			if err := sleep(ctx, cfg.Delay); err != nil {
				b.logger.Warn("fetch interrupted", "err", err)
				break
			}
		}

		inputs, err := fetch(ctx, q)
		if err != nil {
			b.logger.Warn("request failed", "query", q.term, "location", q.place, "err", err)
			continue
		}
		inputs = capResults(inputs, cfg.MaxResults)

		now := b.now()
		added := 0
		for _, in := range inputs {
			if c.add(normalize.ToListing(b.name, in, now)) {
				added++
			}
		}
		b.logger.Debug("request done", "query", q.term, "location", q.place, "received", len(inputs), "added", added)
	}
	b.logger.Info("fetch finished", "queries", len(queries), "listings", len(c.out))
	return c.listings()
}
