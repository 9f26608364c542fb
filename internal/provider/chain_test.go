package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/sumlens/internal/provider/prompt"
)

type fakeProvider struct {
	id    string
	body  []byte
	err   error
	delay time.Duration

	mu      sync.Mutex
	calls   int
	prompts []string
	tokens  []int
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, maxTokens int) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.tokens = append(f.tokens, maxTokens)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.body, f.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestChainFirstSuccessStops(t *testing.T) {
	first := &fakeProvider{id: "gemini", body: []byte(`{"candidates":[{"content":{"parts":[{"text":"from gemini"}]}}]}`)}
	second := &fakeProvider{id: "text-bison", body: []byte(`{"candidates":[{"output":"from bison"}]}`)}

	chain := NewChain([]Provider{first, second}, nil)
	summary, err := chain.SummarizeExternal(context.Background(), "some text", 80)
	require.NoError(t, err)

	assert.Equal(t, "from gemini", summary.Text)
	assert.Equal(t, "gemini", summary.Provider)
	assert.Equal(t, 1, first.callCount())
	assert.Equal(t, 0, second.callCount())
	assert.Equal(t, []int{80}, first.tokens)
	assert.Equal(t, "Summarize the following text concisely in about 80 tokens:\n\nsome text", first.prompts[0])
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &fakeProvider{id: "gemini", err: &ProviderError{Provider: "gemini", StatusCode: 500, Message: "boom", RawResponse: []byte(`{"error":"boom"}`)}}
	second := &fakeProvider{id: "text-bison", body: []byte(`{"candidates":[{"output":"from bison"}]}`)}

	chain := NewChain([]Provider{first, second}, nil)
	summary, err := chain.SummarizeExternal(context.Background(), "text", 100)
	require.NoError(t, err)
	assert.Equal(t, "from bison", summary.Text)
	assert.Equal(t, "text-bison", summary.Provider)
	assert.Equal(t, 1, first.callCount())
	assert.Equal(t, 1, second.callCount())
}

func TestChainEmptyExtractionIsFailure(t *testing.T) {
	first := &fakeProvider{id: "gemini", body: []byte(`{"candidates":[]}`)}
	second := &fakeProvider{id: "text-bison", body: []byte(`not json`)}

	chain := NewChain([]Provider{first, second}, nil)
	_, err := chain.SummarizeExternal(context.Background(), "text", 100)
	require.Error(t, err)

	var all *AllProvidersFailedError
	require.True(t, errors.As(err, &all))
	require.Len(t, all.Attempts, 2)
	assert.Equal(t, "gemini", all.Attempts[0].Provider)
	assert.Equal(t, 200, all.Attempts[0].Status)
	assert.ErrorIs(t, all.Attempts[0].Err, errEmptyExtraction)
	assert.Equal(t, "text-bison", all.Attempts[1].Provider)
	assert.Equal(t, []byte(`not json`), all.Attempts[1].Body)
}

func TestChainAllFailedReportsAttemptsInOrder(t *testing.T) {
	first := &fakeProvider{id: "gemini", err: &ProviderError{Provider: "gemini", StatusCode: 503, Message: "unavailable", RawResponse: []byte("unavailable")}}
	second := &fakeProvider{id: "text-bison", err: &ProviderError{Provider: "text-bison", Message: "api key is required"}}

	chain := NewChain([]Provider{first, second}, nil)
	_, err := chain.SummarizeExternal(context.Background(), "text", 100)

	var all *AllProvidersFailedError
	require.True(t, errors.As(err, &all))
	require.Len(t, all.Attempts, 2)
	assert.Equal(t, 503, all.Attempts[0].Status)
	assert.Equal(t, []byte("unavailable"), all.Attempts[0].Body)
	assert.Equal(t, 0, all.Attempts[1].Status)
	assert.Contains(t, all.Diagnostic(), "text-bison")
	assert.Contains(t, all.Diagnostic(), "api key is required")
	assert.Contains(t, err.Error(), "all 2 providers failed")
	assert.Len(t, all.Errors(), 2)
}

func TestChainPerAttemptTimeout(t *testing.T) {
	slow := &fakeProvider{id: "slow", delay: time.Second, body: []byte(`{"summary":"late"}`)}
	fast := &fakeProvider{id: "fast", body: []byte(`{"summary":"quick"}`)}

	chain := NewChain([]Provider{slow, fast}, nil)
	chain.Timeout = 20 * time.Millisecond

	summary, err := chain.SummarizeExternal(context.Background(), "text", 10)
	require.NoError(t, err)
	assert.Equal(t, "quick", summary.Text)
	assert.Equal(t, 1, slow.callCount())
}

func TestChainNoProviders(t *testing.T) {
	chain := NewChain(nil, nil)
	_, err := chain.SummarizeExternal(context.Background(), "text", 10)

	var all *AllProvidersFailedError
	require.True(t, errors.As(err, &all))
	assert.Empty(t, all.Attempts)
	assert.Equal(t, "no external providers configured", all.Diagnostic())
}

func TestChainCancelledContext(t *testing.T) {
	p := &fakeProvider{id: "gemini", body: []byte(`{"summary":"x"}`)}
	chain := NewChain([]Provider{p}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.SummarizeExternal(ctx, "text", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.callCount())
}

func TestChainUsesPromptRegistry(t *testing.T) {
	reg, err := prompt.BuildRegistry("")
	require.NoError(t, err)

	p := &fakeProvider{id: "gemini", body: []byte(`{"summary":"ok"}`)}
	chain := NewChain([]Provider{p}, reg)
	chain.PromptSlug = "summarize-bullets"

	_, err = chain.SummarizeExternal(context.Background(), "body text", 40)
	require.NoError(t, err)
	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], "bullet points")
	assert.Contains(t, p.prompts[0], "about 40 tokens")
	assert.Contains(t, p.prompts[0], "body text")

	chain.PromptSlug = "missing"
	_, err = chain.SummarizeExternal(context.Background(), "body text", 40)
	require.Error(t, err)
}

func TestChainIDs(t *testing.T) {
	chain := NewChain([]Provider{&fakeProvider{id: "a"}, &fakeProvider{id: "b"}}, nil)
	assert.Equal(t, []string{"a", "b"}, chain.IDs())
	assert.Equal(t, 2, chain.Len())
}

func TestProviderAttemptErrorReportsStatusOnce(t *testing.T) {
	fromProvider := &ProviderAttemptError{Attempt: ProviderAttempt{
		Provider: "gemini",
		Status:   500,
		Err:      &ProviderError{Provider: "gemini", StatusCode: 500, Message: "boom"},
	}}
	assert.Equal(t, "gemini: gemini request failed: status 500: boom", fromProvider.Error())

	empty := &ProviderAttemptError{Attempt: ProviderAttempt{Provider: "gemini", Status: 200, Err: errEmptyExtraction}}
	assert.Equal(t, "gemini: status 200: response contained no summary text", empty.Error())
}
