package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/sumlens/internal/pipeline"
	"github.com/namelens/sumlens/internal/provider"
	"github.com/namelens/sumlens/internal/ratelimit"
)

type summarizerFunc func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)

func (f summarizerFunc) Summarize(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
	return f(ctx, req)
}

type externalStub struct {
	calls int
	text  string
	err   error
}

func (e *externalStub) SummarizeExternal(_ context.Context, _ string, _ int) (provider.Summary, error) {
	e.calls++
	if e.err != nil {
		return provider.Summary{}, e.err
	}
	return provider.Summary{Text: e.text, Provider: "gemini"}, nil
}

func postSummarize(t *testing.T, h http.Handler, body string, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/summarizer/summarize/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newTestPipeline(ext pipeline.ExternalSummarizer, limit int) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Limiter:  ratelimit.NewLimiter(ratelimit.NewMemoryStore(), limit),
		External: ext,
	}
}

func TestSummarizeHandlerExternalSuccess(t *testing.T) {
	ext := &externalStub{text: "Short summary."}
	h := NewSummarizeHandler(newTestPipeline(ext, 5))

	rec := postSummarize(t, h, `{"text":"A long article. With sentences.","tokens":"80"}`, "10.0.0.1:5000")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Short summary.", body["summary"])
	assert.Equal(t, true, body["used_external"])
	assert.Equal(t, false, body["saved"])
	assert.EqualValues(t, 4, body["remaining"])
	assert.NotContains(t, body, "error")
	assert.Equal(t, 1, ext.calls)

	assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "4", rec.Header().Get(HeaderRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get(HeaderRateLimitReset))
}

func TestSummarizeHandlerFallback(t *testing.T) {
	ext := &externalStub{err: &provider.AllProvidersFailedError{Attempts: []provider.ProviderAttempt{
		{Provider: "gemini", Status: 503, Body: []byte("overloaded")},
	}}}
	h := NewSummarizeHandler(newTestPipeline(ext, 5))

	rec := postSummarize(t, h, `{"text":"The cat sat on the mat. Dogs bark."}`, "10.0.0.2:5000")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["used_external"])
	assert.NotEmpty(t, body["summary"])
	assert.NotEmpty(t, body["error"])
}

func TestSummarizeHandlerRejectsBlankText(t *testing.T) {
	ext := &externalStub{text: "unused"}
	h := NewSummarizeHandler(newTestPipeline(ext, 5))

	for _, body := range []string{`{"text":"   "}`, `{}`, `{"tokens":10}`} {
		rec := postSummarize(t, h, body, "10.0.0.3:5000")
		require.Equal(t, http.StatusBadRequest, rec.Code, body)

		var resp errorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
		assert.Equal(t, "Text is required", resp.Error.Message)
	}
	assert.Zero(t, ext.calls)
}

func TestSummarizeHandlerRejectsMalformedBodies(t *testing.T) {
	called := false
	h := NewSummarizeHandler(summarizerFunc(func(context.Context, pipeline.Request) (*pipeline.Response, error) {
		called = true
		return &pipeline.Response{}, nil
	}))

	for _, body := range []string{`text=hello`, `["hello"]`, `{"text":42}`, ``} {
		rec := postSummarize(t, h, body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.False(t, called)
}

func TestSummarizeHandlerRateLimited(t *testing.T) {
	ext := &externalStub{text: "ok"}
	h := NewSummarizeHandler(newTestPipeline(ext, 1))

	first := postSummarize(t, h, `{"text":"One sentence."}`, "10.0.0.4:5000")
	require.Equal(t, http.StatusOK, first.Code)

	rec := postSummarize(t, h, `{"text":"One sentence."}`, "10.0.0.4:5001")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	raw := append([]byte(nil), rec.Body.Bytes()...)

	var resp errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
	assert.EqualValues(t, 0, resp.Error.Details["remaining"])
	assert.Contains(t, resp.Error.Details, "reset_seconds")
	assert.Equal(t, 1, ext.calls)

	var top map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &top))
	assert.EqualValues(t, 0, top["remaining"])
	assert.Contains(t, top, "reset_seconds")
	assert.Equal(t, rec.Header().Get("Retry-After"), fmt.Sprint(top["reset_seconds"]))

	other := postSummarize(t, h, `{"text":"One sentence."}`, "10.0.0.5:5000")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestSummarizeHandlerPassesRequestFields(t *testing.T) {
	var got pipeline.Request
	h := NewSummarizeHandler(summarizerFunc(func(_ context.Context, req pipeline.Request) (*pipeline.Response, error) {
		got = req
		return &pipeline.Response{Summary: "s"}, nil
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/summarizer/summarize", strings.NewReader(
		`{"text":"hello","tokens":42.9,"email":" a@example.com "}`))
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, 42, got.Tokens)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, "203.0.113.7", got.ClientID)
	assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
}

func TestSummarizeHandlerUnexpectedError(t *testing.T) {
	h := NewSummarizeHandler(summarizerFunc(func(context.Context, pipeline.Request) (*pipeline.Response, error) {
		return nil, errors.New("boom")
	}))

	rec := postSummarize(t, h, `{"text":"hello"}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCoerceTokens(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"tokens":120}`, 120},
		{`{"tokens":"75"}`, 75},
		{`{"tokens":" 30 "}`, 30},
		{`{"tokens":"many"}`, 0},
		{`{"tokens":true}`, 0},
		{`{"tokens":null}`, 0},
		{`{}`, 0},
	}
	for _, tc := range tests {
		t.Run(tc.body, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			parsed, err := parseSummarizeRequest(httptest.NewRecorder(), req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, parsed.Tokens)
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"RemoteAddr", "", "192.0.2.1:1234", "192.0.2.1"},
		{"IPv6RemoteAddr", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"Forwarded", "198.51.100.9", "192.0.2.1:1234", "198.51.100.9"},
		{"ForwardedChain", "198.51.100.9, 10.0.0.1", "192.0.2.1:1234", "198.51.100.9"},
		{"EmptyForwardedEntry", " , 10.0.0.1", "192.0.2.1:1234", "192.0.2.1"},
		{"BareRemoteAddr", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.want, ClientIP(req))
		})
	}
}
