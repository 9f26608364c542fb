package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/sumlens/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := config.ProvidersConfig{
		APIKey:  "shared",
		Timeout: 15 * time.Second,
		Chain: []config.ProviderEntry{
			{ID: "gemini", Kind: config.KindGemini, Model: "gemini-2.5-flash"},
			{ID: "text-bison", Kind: config.KindPaLM, Model: "text-bison-001"},
			{ID: "openai", Kind: "OpenAI", Model: "gpt-4o-mini", APIKey: "own"},
		},
		Order: []string{"openai", "gemini"},
	}

	providers, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	require.Len(t, providers, 2)

	oa, ok := providers[0].(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "own", oa.APIKey)
	assert.Equal(t, 15*time.Second, oa.Timeout)

	gm, ok := providers[1].(*GeminiClient)
	require.True(t, ok)
	assert.Equal(t, "shared", gm.APIKey)
	assert.Equal(t, DefaultGoogleBaseURL, gm.BaseURL)
}

func TestFromConfigUnknownKind(t *testing.T) {
	_, err := FromConfig(config.ProvidersConfig{
		Chain: []config.ProviderEntry{{ID: "x", Kind: "bard"}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}
