// Package provider holds one client per external job source. Every client maps
// its records through normalize.ToListing and degrades to an empty result when
// the source is unreachable or unconfigured.
package provider

import (
	"context"
	"errors"
	"strings"

	"job-sync/internal/domain/listing"
	"job-sync/internal/schedule"
)

type Client interface {
	Name() string
	FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error)
}

var ErrNoQueries = errors.New("no query dimensions configured")

type Registry struct {
	clients map[string]Client
	order   []string
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.Register(c)
	}
	return r
}

func (r *Registry) Register(c Client) {
	if r == nil || c == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(c.Name()))
	if _, ok := r.clients[name]; !ok {
		r.order = append(r.order, name)
	}
	r.clients[name] = c
}

func (r *Registry) Get(name string) (Client, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Default registers every built-in client.
func Default(opts Options) *Registry {
	return NewRegistry(
		NewJooble(opts),
		NewAdzuna(opts),
		NewTheirStack(opts),
		NewSerpAPI(opts),
		NewIndianAPI(opts),
		NewFeeds(opts),
	)
}

// collector dedupes by remote id within one client run.
type collector struct {
	seen map[string]struct{}
	out  []listing.Listing
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

func (c *collector) add(l listing.Listing) bool {
	if _, dup := c.seen[l.RemoteID]; dup {
		return false
	}
	c.seen[l.RemoteID] = struct{}{}
	c.out = append(c.out, l)
	return true
}

func (c *collector) listings() []listing.Listing {
	if c.out == nil {
		return []listing.Listing{}
	}
	return c.out
}

type query struct {
	term  string
	place string
}

// crossProduct expands terms × places. An empty places list yields one query
// per term with no place.
func crossProduct(terms, places []string) []query {
	terms = nonEmpty(terms)
	places = nonEmpty(places)
	if len(places) == 0 {
		places = []string{""}
	}
	out := make([]query, 0, len(terms)*len(places))
	for _, t := range terms {
		for _, p := range places {
			out = append(out, query{term: t, place: p})
		}
	}
	return out
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func capResults[T any](items []T, max int) []T {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

func trimBase(u, fallback string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		u = fallback
	}
	return strings.TrimRight(u, "/")
}
