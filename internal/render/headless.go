package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const headlessUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// HeadlessRenderer drives a local Chrome through chromedp. It needs a Chrome
// binary on PATH.
type HeadlessRenderer struct {
	timeout time.Duration
	settle  time.Duration
	logger  *slog.Logger
}

func NewHeadlessRenderer(timeout time.Duration, logger *slog.Logger) *HeadlessRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HeadlessRenderer{
		timeout: timeout,
		settle:  1500 * time.Millisecond,
		logger:  logger.With("component", "render.headless"),
	}
}

func (h *HeadlessRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(headlessUserAgent),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, h.timeout)
	defer reqCancel()

	started := time.Now()
	var html string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(h.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		h.logger.Warn("render failed", "url", pageURL, "err", err)
		return "", err
	}
	h.logger.Debug("rendered", "url", pageURL, "bytes", len(html), "duration", time.Since(started))
	return html, nil
}

var _ Renderer = (*HeadlessRenderer)(nil)
