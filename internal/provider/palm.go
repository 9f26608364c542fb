package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PaLMClient calls models/{model}:generateText on the v1beta2 API
// (text-bison and friends).
type PaLMClient struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewPaLMClient returns a client with defaults applied.
func NewPaLMClient(id, baseURL, apiKey, model string) *PaLMClient {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultGoogleBaseURL
	}
	if strings.TrimSpace(id) == "" {
		id = "text-bison"
	}
	return &PaLMClient{
		Name:    id,
		BaseURL: base,
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
	}
}

// ID implements Provider.
func (c *PaLMClient) ID() string { return c.Name }

type palmPrompt struct {
	Text string `json:"text"`
}

type palmRequest struct {
	Prompt          palmPrompt `json:"prompt"`
	MaxOutputTokens int        `json:"maxOutputTokens,omitempty"`
}

// Generate implements Provider.
func (c *PaLMClient) Generate(ctx context.Context, prompt string, maxTokens int) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("palm client not configured")
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

	payload := palmRequest{
		Prompt:          palmPrompt{Text: prompt},
		MaxOutputTokens: maxTokens,
	}

	endpoint := joinURL(c.BaseURL, "v1beta2/models/"+url.PathEscape(c.Model)+":generateText")
	return postJSON(ctx, c.HTTPClient, c.Name, endpoint, c.Model, payload, map[string]string{
		GoogleAPIKeyHeader: c.APIKey,
	})
}
