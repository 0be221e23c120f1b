package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"job-sync/internal/schedule"
)

const (
	maxBodyBytes    = 5 << 20
	defaultAttempts = 2
	userAgent       = "job-sync/1.0 (+https://github.com/job-sync)"
)

// UsageRecorder counts outbound calls per provider. cache.Redis satisfies it.
type UsageRecorder interface {
	RecordCall(ctx context.Context, provider string, at time.Time) error
}

type Options struct {
	Logger    *slog.Logger
	Recorder  UsageRecorder
	Transport http.RoundTripper
	Now       func() time.Time
}

type base struct {
	name      string
	logger    *slog.Logger
	recorder  UsageRecorder
	transport http.RoundTripper
	now       func() time.Time
}

func newBase(name string, opts Options) base {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return base{
		name:      name,
		logger:    logger.With("provider", name),
		recorder:  opts.Recorder,
		transport: transport,
		now:       now,
	}
}

func (b base) Name() string { return b.name }

func (b base) httpClient(cfg schedule.ProviderConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = schedule.DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &countingTransport{
			base:     b.transport,
			provider: b.name,
			recorder: b.recorder,
			now:      b.now,
			logger:   b.logger,
		},
	}
}

type countingTransport struct {
	base     http.RoundTripper
	provider string
	recorder UsageRecorder
	now      func() time.Time
	logger   *slog.Logger
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.recorder != nil {
		if err := t.recorder.RecordCall(req.Context(), t.provider, t.now()); err != nil {
			t.logger.Debug("usage ledger write failed", "err", err)
		}
	}
	return t.base.RoundTrip(req)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// doWithRetry sends the request built by newReq up to attempts times. Network
// errors, 429 and 5xx are retried with a short linear backoff.
func doWithRetry(ctx context.Context, client *http.Client, newReq func(ctx context.Context) (*http.Request, error), attempts int) ([]byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", userAgent)
		}

		body, err := do(client, req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) || i == attempts-1 {
			break
		}
		if err := sleep(ctx, time.Duration(300*(i+1))*time.Millisecond); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := readAllLimit(resp.Body, 512)
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}
	return readAllLimit(resp.Body, maxBodyBytes)
}

func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	body, err := doWithRetry(ctx, client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}, defaultAttempts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	body, err := doWithRetry(ctx, client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}, defaultAttempts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: max + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("response too large")
	}
	return b, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// flexString decodes a JSON string or number into its text form. Provider ids
// arrive as either.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat decodes a JSON number or numeric string; anything else is nil.
type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		f.v = nil
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.v = nil
		return nil
	}
	f.v = &v
	return nil
}

func (f flexFloat) Ptr() *float64 { return f.v }
