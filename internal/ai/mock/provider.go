package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// MockProvider satisfies models.Provider for testing.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, prompt string, params models.CompletionParams) (models.Completion, error)

	calls atomic.Int64
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, prompt string, params models.CompletionParams) (models.Completion, error) {
	m.calls.Add(1)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, params)
	}
	return models.Completion{}, ai.ErrEmptyResponse
}

// Calls returns how many times Complete was invoked.
func (m *MockProvider) Calls() int {
	return int(m.calls.Load())
}

// NewMockProvider returns a MockProvider named name that always answers with text.
func NewMockProvider(name, text string) *MockProvider {
	return &MockProvider{
		Name_: name,
		CompleteFunc: func(_ context.Context, _ string, _ models.CompletionParams) (models.Completion, error) {
			if text == "" {
				return models.Completion{}, ai.ErrEmptyResponse
			}
			return models.Completion{Text: text, Model: name + "-mock"}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(name string, err error) *MockProvider {
	return &MockProvider{
		Name_: name,
		CompleteFunc: func(_ context.Context, _ string, _ models.CompletionParams) (models.Completion, error) {
			return models.Completion{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider(name string) *MockProvider {
	return &MockProvider{
		Name_: name,
		CompleteFunc: func(ctx context.Context, _ string, _ models.CompletionParams) (models.Completion, error) {
			<-ctx.Done()
			return models.Completion{}, ai.ErrTimeout
		},
	}
}

// NewPanickingProvider returns a MockProvider whose Complete panics.
func NewPanickingProvider(name string) *MockProvider {
	return &MockProvider{
		Name_: name,
		CompleteFunc: func(_ context.Context, _ string, _ models.CompletionParams) (models.Completion, error) {
			panic("mock provider exploded")
		},
	}
}

// Compile-time check that MockProvider implements Provider.
var _ models.Provider = (*MockProvider)(nil)
