package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/sumlens/internal/observability"
	"github.com/namelens/sumlens/internal/pipeline"
	"github.com/namelens/sumlens/internal/provider"
	"github.com/namelens/sumlens/internal/ratelimit"
	"github.com/namelens/sumlens/internal/server"
	"github.com/namelens/sumlens/internal/server/handlers"
	"github.com/namelens/sumlens/internal/store"
)

// memoryResults collects persisted records.
type memoryResults struct {
	mu      sync.Mutex
	records []*store.SummaryRecord
}

func (m *memoryResults) SaveSummary(_ context.Context, rec *store.SummaryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryResults) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// isPermissionError reports whether loopback sockets are blocked by the
// sandbox.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func initMetricsOrSkip(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics("test", 0); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

func listenOrSkip(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}
	return ln
}

// newStack wires a real pipeline over a fake Gemini endpoint, an in-memory
// limiter and an in-memory result store.
func newStack(t *testing.T, limit int, gemini http.HandlerFunc) (*httptest.Server, *pipeline.Persister, *memoryResults) {
	t.Helper()

	upstream := httptest.NewServer(gemini)
	t.Cleanup(upstream.Close)

	chain := provider.NewChain([]provider.Provider{
		provider.NewGeminiClient("gemini", upstream.URL, "test-key", "gemini-test"),
	}, nil)
	chain.Timeout = 2 * time.Second

	results := &memoryResults{}
	persister := pipeline.NewPersister(results, 4, time.Second, nil)
	pipe := &pipeline.Pipeline{
		Limiter:     ratelimit.NewLimiter(ratelimit.NewMemoryStore(), limit),
		External:    chain,
		Persister:   persister,
		SaveToStore: true,
	}

	handlers.InitHealthManager("test")
	srv := server.New(server.Options{Host: "127.0.0.1", Summarizer: pipe})

	ts := &httptest.Server{
		Listener: listenOrSkip(t),
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, persister, results
}

func postSummarize(t *testing.T, client *http.Client, baseURL, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := client.Post(baseURL+server.SummarizePath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck // test body

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestSummarize_EndToEnd(t *testing.T) {
	observability.InitCLILogger("test", false)

	ts, persister, results := newStack(t, 2, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A short summary."}]}}]}`))
	})
	client := ts.Client()

	resp, payload := postSummarize(t, client, ts.URL, `{"text":"One sentence. Another sentence.","tokens":50}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A short summary.", payload["summary"])
	assert.Equal(t, true, payload["used_external"])
	assert.Equal(t, true, payload["saved"])
	assert.EqualValues(t, 1, payload["remaining"])

	resp, _ = postSummarize(t, client, ts.URL, `{"text":"Second call."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload = postSummarize(t, client, ts.URL, `{"text":"Third call."}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	errBody, ok := payload["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RATE_LIMITED", errBody["code"])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, persister.Wait(ctx))
	assert.Equal(t, 2, results.len())
}

func TestSummarize_EndToEndFallback(t *testing.T) {
	observability.InitCLILogger("test", false)

	ts, _, _ := newStack(t, 5, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	})

	resp, payload := postSummarize(t, ts.Client(), ts.URL,
		`{"text":"Cats sleep a lot. Cats eat fish. Dogs bark."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, payload["used_external"])
	assert.NotEmpty(t, payload["summary"])
	assert.Contains(t, payload["error"], "503")
}

func TestMetricsEndpoint_Integration(t *testing.T) {
	observability.InitCLILogger("test", false)
	initMetricsOrSkip(t)

	ts, _, _ := newStack(t, 100, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"output":"ok"}]}`))
	})
	client := ts.Client()

	const numRequests = 20
	var wg sync.WaitGroup
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var (
				resp *http.Response
				err  error
			)
			if i%2 == 0 {
				resp, err = client.Get(ts.URL + "/health")
			} else {
				resp, err = client.Post(ts.URL+server.SummarizePath, "application/json", strings.NewReader(`{"text":"Hello there."}`))
			}
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	content := string(body)
	assert.Contains(t, content, "test_http_requests_total")
	assert.Contains(t, content, "test_http_request_duration_ms")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	observability.InitCLILogger("test", false)

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	ts, _, _ := newStack(t, 5, func(w http.ResponseWriter, r *http.Request) {})

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
