package routing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/providers"
)

func testConfig() *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			Primary:   "openai/gpt-4o",
			Fallbacks: []string{"anthropic/claude-sonnet-4", "local/llama3/8b"},
		},
		Providers: map[string]config.ProviderConfig{
			"openai": {
				APIKey:  "sk-test",
				Headers: map[string]string{"X-Org": "acme"},
				Timeout: 30 * time.Second,
			},
			"anthropic": {API: providers.APIAnthropicMessages, APIKey: "ak"},
			"local":     {API: providers.APIOllamaChat, BaseURL: "http://localhost:11434", MaxRetries: 2},
		},
	}
}

func TestResolveModelRef(t *testing.T) {
	cfg := testConfig()

	model, err := ResolveModelRef("openai/gpt-4o", cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", model.ProviderName)
	assert.Equal(t, "gpt-4o", model.ModelID)
	assert.Equal(t, providers.APIOpenAICompletions, model.API, "api should default to openai-completions")
	assert.Equal(t, "sk-test", model.APIKey)
	assert.Equal(t, "acme", model.Headers["X-Org"])
	assert.Equal(t, 30*time.Second, model.Timeout)
	assert.Equal(t, "openai/gpt-4o", model.Ref())
}

func TestResolveModelRef_SplitsOnFirstSlash(t *testing.T) {
	model, err := ResolveModelRef("local/llama3/8b", testConfig())
	require.NoError(t, err)
	assert.Equal(t, "local", model.ProviderName)
	assert.Equal(t, "llama3/8b", model.ModelID)
	assert.Equal(t, providers.APIOllamaChat, model.API)
	assert.Equal(t, 2, model.MaxRetries)
}

func TestResolveModelRef_Errors(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		ref    string
		target error
	}{
		{"foo", ErrInvalidReference},
		{"/gpt-4o", ErrInvalidReference},
		{"openai/", ErrInvalidReference},
		{"unknownprovider/model", ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := ResolveModelRef(tt.ref, cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "expected %v, got %v", tt.target, err)
		})
	}

	_, err := ResolveModelRef("mistral/large", cfg)
	var unknown *UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"anthropic", "local", "openai"}, unknown.AvailableProviders)
}

func TestResolveModelRef_DoesNotShareHeaders(t *testing.T) {
	cfg := testConfig()

	model, err := ResolveModelRef("openai/gpt-4o", cfg)
	require.NoError(t, err)
	model.Headers["X-Org"] = "changed"

	assert.Equal(t, "acme", cfg.Providers["openai"].Headers["X-Org"])
}

func TestResolveModelRef_SeesConfigChanges(t *testing.T) {
	cfg := testConfig()

	first, err := ResolveModelRef("openai/gpt-4o", cfg)
	require.NoError(t, err)

	p := cfg.Providers["openai"]
	p.APIKey = "sk-rotated"
	cfg.Providers["openai"] = p

	second, err := ResolveModelRef("openai/gpt-4o", cfg)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", first.APIKey)
	assert.Equal(t, "sk-rotated", second.APIKey)
}

func TestBuildChain(t *testing.T) {
	chain, err := BuildChain(testConfig())
	require.NoError(t, err)
	assert.Equal(t, Chain{"openai/gpt-4o", "anthropic/claude-sonnet-4", "local/llama3/8b"}, chain)

	cfg := testConfig()
	cfg.Model.Fallbacks = nil
	chain, err = BuildChain(cfg)
	require.NoError(t, err)
	assert.Equal(t, Chain{"openai/gpt-4o"}, chain)

	cfg.Model.Primary = ""
	_, err = BuildChain(cfg)
	assert.ErrorIs(t, err, ErrNoPrimaryModel)

	_, err = BuildChain(nil)
	assert.ErrorIs(t, err, ErrNoPrimaryModel)
}
