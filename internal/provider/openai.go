package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the chat completions endpoint of an OpenAI-compatible
// API through the official SDK. SDK retries are disabled so a provider is
// still tried exactly once per request.
type OpenAIClient struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewOpenAIClient returns a client with defaults applied.
func NewOpenAIClient(id, baseURL, apiKey, model string) *OpenAIClient {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(id) == "" {
		id = "openai"
	}
	return &OpenAIClient{
		Name:    id,
		BaseURL: base,
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
	}
}

// ID implements Provider.
func (c *OpenAIClient) ID() string { return c.Name }

// Generate implements Provider. The raw completion JSON is returned so the
// shared extractors decide what counts as text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, maxTokens int) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if c.APIKey == "" {
		return nil, &ProviderError{Provider: c.Name, Message: "api key is required"}
	}
	if c.Model == "" {
		return nil, &ProviderError{Provider: c.Name, Message: "model is required"}
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		option.WithBaseURL(c.BaseURL),
		option.WithMaxRetries(0),
	}
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	client := openai.NewClient(opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	start := time.Now()
	entry := TraceEntry{
		Provider: c.Name,
		Endpoint: joinURL(c.BaseURL, "chat/completions"),
		Method:   http.MethodPost,
		Model:    c.Model,
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	entry.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			raw := []byte(apiErr.RawJSON())
			entry.StatusCode = apiErr.StatusCode
			entry.Error = err.Error()
			Trace(entry)
			return nil, &ProviderError{
				Provider:    c.Name,
				StatusCode:  apiErr.StatusCode,
				Message:     truncate(raw, 512),
				RawResponse: raw,
			}
		}
		entry.Error = err.Error()
		Trace(entry)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	raw := []byte(resp.RawJSON())
	entry.StatusCode = http.StatusOK
	entry.Response = raw
	Trace(entry)
	return raw, nil
}
