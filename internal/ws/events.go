package ws

import (
	"context"
	"encoding/json"
	"time"

	"job-sync/internal/scholarship"
	"job-sync/internal/syncer"
)

const (
	EventSyncCompleted   = "sync_completed"
	EventScrapeCompleted = "scrape_completed"
)

type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type syncSummary struct {
	Success  bool                    `json:"success"`
	Duration string                  `json:"duration"`
	Totals   syncer.Stats            `json:"totals"`
	Results  []syncer.ProviderResult `json:"results"`
}

// Publisher adapts the hub to the sync and scrape completion hooks.
type Publisher struct {
	hub *Hub
	now func() time.Time
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub, now: time.Now}
}

func (p *Publisher) SyncCompleted(ctx context.Context, r syncer.Report) {
	p.publish(EventSyncCompleted, syncSummary{
		Success:  r.Success,
		Duration: r.Duration,
		Totals:   r.Totals(),
		Results:  r.Results,
	})
}

func (p *Publisher) ScrapeCompleted(ctx context.Context, s scholarship.Stats) {
	p.publish(EventScrapeCompleted, s)
}

func (p *Publisher) publish(kind string, data any) {
	if p == nil || p.hub == nil {
		return
	}
	b, err := json.Marshal(Event{
		Type:      kind,
		Timestamp: p.now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		p.hub.logger.Warn("encode event failed", "type", kind, "err", err)
		return
	}
	p.hub.Broadcast(b)
}

var (
	_ syncer.Sink      = (*Publisher)(nil)
	_ scholarship.Sink = (*Publisher)(nil)
)
