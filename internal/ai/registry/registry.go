// Package registry builds the set of configured LLM providers.
package registry

import (
	"fmt"
	"sort"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/ai/anthropic"
	"github.com/kiranshivaraju/brandlens/internal/ai/ollama"
	"github.com/kiranshivaraju/brandlens/internal/ai/openai"
	"github.com/kiranshivaraju/brandlens/internal/config"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// Registry maps canonical provider identifiers to configured providers.
type Registry struct {
	providers map[string]models.Provider
}

// New constructs every provider listed in cfg.Providers.
// Called once at server startup.
func New(cfg config.AIConfig) (*Registry, error) {
	r := &Registry{providers: make(map[string]models.Provider, len(cfg.Providers))}
	for _, name := range cfg.Providers {
		p, err := NewProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		r.providers[p.Name()] = ai.NewRateLimited(p, cfg.RateLimitRPM)
	}
	return r, nil
}

// NewFromProviders builds a registry around already constructed providers.
func NewFromProviders(providers ...models.Provider) *Registry {
	r := &Registry{providers: make(map[string]models.Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// NewProvider constructs a single provider by identifier.
func NewProvider(name string, cfg config.AIConfig) (models.Provider, error) {
	canonical, ok := ai.Canonical(name)
	if !ok {
		return nil, fmt.Errorf("%w %q: must be one of openai, deepseek, doubao, vllm, anthropic, ollama", ai.ErrUnknownProvider, name)
	}

	switch canonical {
	case "openai":
		return openai.NewProvider("openai", cfg.OpenAI), nil
	case "deepseek":
		return openai.NewProvider("deepseek", cfg.DeepSeek), nil
	case "doubao":
		return openai.NewProvider("doubao", cfg.Doubao), nil
	case "vllm":
		return openai.NewProvider("vllm", cfg.VLLM), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	default:
		return ollama.NewProvider(cfg.Ollama), nil
	}
}

// Lookup returns the configured provider for a name or alias.
func (r *Registry) Lookup(name string) (models.Provider, bool) {
	canonical, ok := ai.Canonical(name)
	if !ok {
		return nil, false
	}
	p, ok := r.providers[canonical]
	return p, ok
}

// Names returns the configured provider identifiers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int { return len(r.providers) }
