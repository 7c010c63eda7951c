package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/ai/mock"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var params = models.CompletionParams{MaxTokens: 300, Temperature: 0.3}

// --- NewMockProvider ---

func TestNewMockProvider_Complete(t *testing.T) {
	p := mock.NewMockProvider("openai", "I recommend Notion")
	assert.Equal(t, "openai", p.Name())

	c, err := p.Complete(context.Background(), "best notes app?", params)
	require.NoError(t, err)
	assert.Equal(t, "I recommend Notion", c.Text)
	assert.Equal(t, "openai-mock", c.Model)
	assert.Equal(t, 1, p.Calls())
}

func TestNewMockProvider_EmptyText(t *testing.T) {
	p := mock.NewMockProvider("deepseek", "")

	_, err := p.Complete(context.Background(), "prompt", params)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

// --- NewFailingProvider ---

func TestNewFailingProvider_Complete(t *testing.T) {
	p := mock.NewFailingProvider("doubao", ai.ErrProviderUnavailable)

	_, err := p.Complete(context.Background(), "prompt", params)
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
	assert.Equal(t, "doubao", p.Name())
}

func TestNewFailingProvider_CustomError(t *testing.T) {
	customErr := errors.New("custom AI error")
	p := mock.NewFailingProvider("openai", customErr)

	_, err := p.Complete(context.Background(), "prompt", params)
	assert.ErrorIs(t, err, customErr)
}

// --- NewTimeoutProvider ---

func TestNewTimeoutProvider_Complete(t *testing.T) {
	p := mock.NewTimeoutProvider("ollama")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, "prompt", params)
	assert.ErrorIs(t, err, ai.ErrTimeout)
}

// --- Zero-value MockProvider ---

func TestMockProvider_NilFunc(t *testing.T) {
	p := &mock.MockProvider{Name_: "bare"}

	c, err := p.Complete(context.Background(), "prompt", params)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	assert.Equal(t, models.Completion{}, c)
}

// --- Interface compliance ---

func TestMockProvider_ImplementsProvider(t *testing.T) {
	var _ models.Provider = mock.NewMockProvider("openai", "x")
	var _ models.Provider = mock.NewFailingProvider("openai", nil)
	var _ models.Provider = mock.NewTimeoutProvider("openai")
	var _ models.Provider = mock.NewPanickingProvider("openai")
}
