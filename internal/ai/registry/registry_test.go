package registry_test

import (
	"testing"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/ai/mock"
	"github.com/kiranshivaraju/brandlens/internal/ai/registry"
	"github.com/kiranshivaraju/brandlens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullConfig() config.AIConfig {
	return config.AIConfig{
		Providers: []string{"openai", "deepseek", "doubao", "vllm", "anthropic", "ollama"},
		OpenAI:    config.OpenAICompatConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
		DeepSeek:  config.OpenAICompatConfig{APIKey: "sk-ds", BaseURL: "https://api.deepseek.com", Model: "deepseek-chat"},
		Doubao:    config.OpenAICompatConfig{APIKey: "ark", Model: "doubao-lite"},
		VLLM:      config.OpenAICompatConfig{BaseURL: "http://localhost:8000/v1", Model: "mistral-7b"},
		Anthropic: config.AnthropicConfig{APIKey: "sk-ant-test", Model: "claude-sonnet-4-5-20250929"},
		Ollama:    config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3"},
	}
}

func TestNewProvider_Names(t *testing.T) {
	cfg := fullConfig()
	for _, name := range []string{"openai", "deepseek", "doubao", "vllm", "anthropic", "ollama"} {
		t.Run(name, func(t *testing.T) {
			p, err := registry.NewProvider(name, cfg)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
		})
	}
}

func TestNewProvider_Aliases(t *testing.T) {
	cfg := fullConfig()

	p, err := registry.NewProvider("ChatGPT", cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = registry.NewProvider("claude", cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := registry.NewProvider("unknown-provider", fullConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrUnknownProvider)
	assert.Contains(t, err.Error(), "unknown-provider")
}

func TestNew_BuildsConfiguredProviders(t *testing.T) {
	cfg := fullConfig()
	cfg.Providers = []string{"ollama", "deepseek"}
	cfg.RateLimitRPM = 30

	r, err := registry.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"deepseek", "ollama"}, r.Names())

	p, ok := r.Lookup("DeepSeek")
	require.True(t, ok)
	assert.Equal(t, "deepseek", p.Name())

	_, ok = r.Lookup("openai")
	assert.False(t, ok, "known but unconfigured provider must not resolve")
}

func TestNew_UnknownProviderFails(t *testing.T) {
	cfg := fullConfig()
	cfg.Providers = []string{"ollama", "bard"}

	_, err := registry.New(cfg)
	assert.ErrorIs(t, err, ai.ErrUnknownProvider)
}

func TestNewFromProviders(t *testing.T) {
	r := registry.NewFromProviders(
		mock.NewMockProvider("openai", "hello"),
		mock.NewMockProvider("anthropic", "hi"),
	)

	p, ok := r.Lookup("claude")
	require.True(t, ok)
	assert.Equal(t, "anthropic", p.Name())

	_, ok = r.Lookup("not-a-provider")
	assert.False(t, ok)
}
