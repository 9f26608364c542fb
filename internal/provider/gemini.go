package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGoogleBaseURL is the Generative Language API host used by the
// gemini and palm kinds.
const DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com"

// GoogleAPIKeyHeader carries the API key for the gemini and palm kinds.
const GoogleAPIKeyHeader = "x-goog-api-key"

// GeminiClient calls models/{model}:generateContent on the v1beta API.
type GeminiClient struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewGeminiClient returns a client with defaults applied.
func NewGeminiClient(id, baseURL, apiKey, model string) *GeminiClient {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultGoogleBaseURL
	}
	if strings.TrimSpace(id) == "" {
		id = "gemini"
	}
	return &GeminiClient{
		Name:    id,
		BaseURL: base,
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
	}
}

// ID implements Provider.
func (c *GeminiClient) ID() string { return c.Name }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// Generate implements Provider.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, maxTokens int) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
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

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{MaxOutputTokens: maxTokens},
	}

	endpoint := joinURL(c.BaseURL, "v1beta/models/"+url.PathEscape(c.Model)+":generateContent")
	return postJSON(ctx, c.HTTPClient, c.Name, endpoint, c.Model, payload, map[string]string{
		GoogleAPIKeyHeader: c.APIKey,
	})
}
