package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/namelens/sumlens/internal/config"
)

// FromConfig builds the provider chain described by cfg, honouring
// providers.order. Entries without their own api_key use the shared key.
func FromConfig(cfg config.ProvidersConfig, client *http.Client) ([]Provider, error) {
	entries := cfg.OrderedChain()
	out := make([]Provider, 0, len(entries))
	for i, entry := range entries {
		key := strings.TrimSpace(entry.APIKey)
		if key == "" {
			key = strings.TrimSpace(cfg.APIKey)
		}

		switch strings.ToLower(strings.TrimSpace(entry.Kind)) {
		case config.KindGemini:
			c := NewGeminiClient(entry.ID, entry.BaseURL, key, entry.Model)
			c.HTTPClient = client
			c.Timeout = cfg.Timeout
			out = append(out, c)
		case config.KindPaLM:
			c := NewPaLMClient(entry.ID, entry.BaseURL, key, entry.Model)
			c.HTTPClient = client
			c.Timeout = cfg.Timeout
			out = append(out, c)
		case config.KindOpenAI:
			c := NewOpenAIClient(entry.ID, entry.BaseURL, key, entry.Model)
			c.HTTPClient = client
			c.Timeout = cfg.Timeout
			out = append(out, c)
		default:
			return nil, fmt.Errorf("providers.chain[%d] (%s): unknown kind %q", i, entry.ID, entry.Kind)
		}
	}
	return out, nil
}
