package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTracingWritesEntriesWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"output":"ok"}]}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	closeFn, err := EnableTracing(path)
	require.NoError(t, err)

	client := NewPaLMClient("text-bison", server.URL, "secret-key", "text-bison-001")
	client.HTTPClient = server.Client()
	_, err = client.Generate(context.Background(), "hello", 10)
	require.NoError(t, err)
	closeFn()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck // test cleanup

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	line := scanner.Text()
	require.NotContains(t, line, "secret-key")

	var entry TraceEntry
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	require.Equal(t, "text-bison", entry.Provider)
	require.Equal(t, http.StatusOK, entry.StatusCode)
	require.Contains(t, entry.Endpoint, ":generateText")
	require.False(t, scanner.Scan())
}

func TestTracingTransportErrorOmitsKey(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	deadURL := server.URL
	server.Close()

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	closeFn, err := EnableTracing(path)
	require.NoError(t, err)

	client := NewGeminiClient("gemini", deadURL, "secret-key", "gemini-2.5-flash")
	_, err = client.Generate(context.Background(), "hello", 10)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "secret-key")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.NotContains(t, string(data), "secret-key")
}
