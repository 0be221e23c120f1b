//go:build integration

package render

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireChrome(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(bin); err == nil {
			return
		}
	}
	t.Skip("no chrome binary on PATH")
}

func TestHeadlessRenderer_RendersScriptContent(t *testing.T) {
	requireChrome(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><body><div id="list"></div>
<script>document.getElementById("list").innerHTML = "<a class='card'>Merit Scholarship 2025</a>";</script>
</body></html>`)
	}))
	defer srv.Close()

	h := NewHeadlessRenderer(30*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	html, err := h.Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "Merit Scholarship 2025") {
		t.Fatalf("script output missing from %q", html)
	}
}

func TestHeadlessRenderer_Timeout(t *testing.T) {
	requireChrome(t)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h := NewHeadlessRenderer(2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	started := time.Now()
	if _, err := h.Render(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(started); elapsed > 20*time.Second {
		t.Fatalf("render ignored its timeout, took %s", elapsed)
	}
}
