package main

// Notes:
// - runServe: we bind 127.0.0.1:0 through env.Listen, probe /healthz and
//   /metrics, then cancel the context and expect a clean shutdown.
// - The redis cache path needs a live server and is covered by the cache
//   package's integration tests.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// TestRunServe - Lifecycle
// ---------------------------------------------------------------------------

func TestRunServe(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	addrCh := make(chan string, 1)
	env.Listen = func(network, _ string) (net.Listener, error) {
		ln, err := net.Listen(network, "127.0.0.1:0")
		if err == nil {
			addrCh <- ln.Addr().String()
		}
		return ln, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"serve", "--log-level", "error"}, env.Environment)
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case code := <-done:
		t.Fatalf("serve exited early with %d: %s", code, env.stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start listening")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("/healthz = %d %s", resp.StatusCode, body)
	}

	resp, err = client.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "office2pdf_engines_capacity") {
		t.Errorf("/metrics missing load gauges:\n%.500s", body)
	}

	cancel()

	select {
	case code := <-done:
		if code != ExitSuccess {
			t.Errorf("exit code = %d, stderr: %s", code, env.stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}

	if !env.conv.closed {
		t.Error("converter should be closed on shutdown")
	}
	if env.conv.swept == 0 {
		t.Error("orphaned workspaces should be swept at startup")
	}
}

func TestRunServe_ListenError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.Listen = func(string, string) (net.Listener, error) {
		return nil, &net.OpError{Op: "listen", Err: io.ErrUnexpectedEOF}
	}

	code := run(context.Background(), []string{"serve"}, env.Environment)
	if code != ExitGeneral {
		t.Errorf("exit code = %d, want %d", code, ExitGeneral)
	}
	assertContains(t, "stderr", env.stderr.String(), "listening on :8080")
	if !env.conv.closed {
		t.Error("converter should be closed when listening fails")
	}
}

func TestRunServe_InvalidRedisURL(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	code := run(context.Background(), []string{"serve", "--redis-url", "http://cache"}, env.Environment)
	if code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
}
