// Package models contains shared data models used across the BrandLens codebase.
package models

import (
	"context"
)

// Provider is the uniform chat-completion capability every LLM integration implements.
// Never call a vendor client directly; always go through this interface.
type Provider interface {
	// Complete sends a single user prompt and returns the generated text.
	// Implementations do not retry; failures wrap one of the ai package sentinels.
	Complete(ctx context.Context, prompt string, params CompletionParams) (Completion, error)
	// Name returns the provider identifier (e.g., "openai", "deepseek").
	Name() string
}

// CompletionParams are the per-call generation settings.
type CompletionParams struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Completion is a successful provider response.
type Completion struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	LatencyMS int64  `json:"latency_ms"`
}

// FailureKind classifies why a provider call did not produce text.
type FailureKind string

const (
	FailureTimeout             FailureKind = "timeout"
	FailureAuth                FailureKind = "auth_error"
	FailureRateLimited         FailureKind = "rate_limited"
	FailureProviderUnavailable FailureKind = "provider_unavailable"
	FailureEmptyResponse       FailureKind = "empty_response"
)

// Failure describes a provider call that did not succeed.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Outcome is the settled result of one provider call: exactly one of
// Completion or Failure is set.
type Outcome struct {
	Provider   string
	Completion *Completion
	Failure    *Failure
	LatencyMS  int64
}

// Succeeded reports whether the outcome carries response text (possibly empty).
func (o Outcome) Succeeded() bool {
	return o.Completion != nil
}
