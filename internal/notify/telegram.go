// Package notify sends run summaries to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"job-sync/internal/scholarship"
	"job-sync/internal/syncer"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegram connects to the Bot API. It returns nil, nil when token or chat
// id are unset so callers can skip registration.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	if strings.TrimSpace(token) == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newTelegram(api, chatID, log), nil
}

func newTelegram(api telegramAPI, chatID int64, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.Default()
	}
	return &Telegram{api: api, chatID: chatID, log: log.With("component", "notify")}
}

// SyncCompleted sends a summary of r. Failures are logged only.
func (t *Telegram) SyncCompleted(ctx context.Context, r syncer.Report) {
	if t == nil {
		return
	}
	t.send(FormatSyncReport(r))
}

func (t *Telegram) ScrapeCompleted(ctx context.Context, s scholarship.Stats) {
	if t == nil {
		return
	}
	t.send(FormatScrapeStats(s))
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send message", "chat_id", t.chatID, "error", err)
	}
}

func FormatSyncReport(r syncer.Report) string {
	var b strings.Builder
	if r.Success {
		fmt.Fprintf(&b, "Job sync finished in %s\n", r.Duration)
	} else {
		fmt.Fprintf(&b, "Job sync FAILED after %s: %s\n", r.Duration, r.Error)
	}
	for _, res := range r.Results {
		switch res.Status {
		case syncer.StatusSuccess:
			s := res.Stats
			fmt.Fprintf(&b, "• %s: fetched %d, new %d, updated %d, errors %d\n", res.API, s.Fetched, s.New, s.Updated, s.Errors)
		case syncer.StatusError:
			fmt.Fprintf(&b, "• %s: error (%s)\n", res.API, res.Error)
		default:
			fmt.Fprintf(&b, "• %s: skipped (%s)\n", res.API, res.Reason)
		}
	}
	if len(r.Results) == 0 && r.Success {
		b.WriteString("No providers were due.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatScrapeStats(s scholarship.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scholarship scrape finished in %s\n", s.Duration)
	fmt.Fprintf(&b, "total %d, inserted %d, updated %d, errors %d", s.Total, s.Inserted, s.Updated, s.Errors)
	names := make([]string, 0, len(s.Sources))
	for name, src := range s.Sources {
		if src.Fallback {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n• %s: curated fallback", name)
	}
	return b.String()
}

var (
	_ syncer.Sink      = (*Telegram)(nil)
	_ scholarship.Sink = (*Telegram)(nil)
)
