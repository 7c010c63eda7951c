package ai

import "strings"

// Known provider identifiers, in the order they are listed to clients.
var knownProviders = []string{"openai", "deepseek", "doubao", "vllm", "anthropic", "ollama"}

var aliases = map[string]string{
	"chatgpt": "openai",
	"gpt":     "openai",
	"claude":  "anthropic",
}

// Canonical resolves a provider identifier or alias, case-insensitively.
func Canonical(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[n]; ok {
		return target, true
	}
	for _, known := range knownProviders {
		if n == known {
			return known, true
		}
	}
	return "", false
}

// KnownProviders returns a copy of the provider catalog.
func KnownProviders() []string {
	out := make([]string, len(knownProviders))
	copy(out, knownProviders)
	return out
}
