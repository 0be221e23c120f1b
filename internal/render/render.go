// Package render turns JavaScript-heavy pages into HTML.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultProxyURL = "https://api.scraperapi.com"
	DefaultTimeout  = 90 * time.Second
	maxPageBytes    = 8 << 20
)

var ErrNotConfigured = errors.New("renderer not configured")

type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// ProxyRenderer asks a third-party rendering proxy for the page:
// GET {base}?api_key=..&url=..&render=true.
type ProxyRenderer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewProxyRenderer(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *ProxyRenderer {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultProxyURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyRenderer{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "render.proxy"),
	}
}

func (r *ProxyRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	if r == nil || r.apiKey == "" {
		return "", ErrNotConfigured
	}

	q := url.Values{}
	q.Set("api_key", r.apiKey)
	q.Set("url", pageURL)
	q.Set("render", "true")
	endpoint := r.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		body := strings.TrimSpace(string(rb))
		r.logger.Warn("render failed", "url", pageURL, "status", resp.StatusCode, "body", body)
		return "", fmt.Errorf("render %s: status=%d", pageURL, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ Renderer = (*ProxyRenderer)(nil)
