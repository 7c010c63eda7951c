package ai_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/ai/mock"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var params = models.CompletionParams{MaxTokens: 300, Temperature: 0.3}

func TestInvoke_Success(t *testing.T) {
	p := mock.NewMockProvider("openai", "Notion is great")

	out := ai.Invoke(context.Background(), p, "best notes app?", params, time.Second)

	require.True(t, out.Succeeded())
	assert.Nil(t, out.Failure)
	assert.Equal(t, "openai", out.Provider)
	assert.Equal(t, "Notion is great", out.Completion.Text)
	assert.GreaterOrEqual(t, out.LatencyMS, int64(0))
}

func TestInvoke_EmptyResponse(t *testing.T) {
	p := mock.NewMockProvider("deepseek", "")

	out := ai.Invoke(context.Background(), p, "prompt", params, time.Second)

	assert.False(t, out.Succeeded())
	require.NotNil(t, out.Failure)
	assert.Equal(t, models.FailureEmptyResponse, out.Failure.Kind)
}

func TestInvoke_Timeout(t *testing.T) {
	p := mock.NewTimeoutProvider("ollama")

	start := time.Now()
	out := ai.Invoke(context.Background(), p, "prompt", params, 30*time.Millisecond)

	require.NotNil(t, out.Failure)
	assert.Equal(t, models.FailureTimeout, out.Failure.Kind)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInvoke_TimeoutWrappedAsGenericError(t *testing.T) {
	p := &mock.MockProvider{
		Name_: "vllm",
		CompleteFunc: func(ctx context.Context, _ string, _ models.CompletionParams) (models.Completion, error) {
			<-ctx.Done()
			return models.Completion{}, errors.New("connection closed")
		},
	}

	out := ai.Invoke(context.Background(), p, "prompt", params, 20*time.Millisecond)

	require.NotNil(t, out.Failure)
	assert.Equal(t, models.FailureTimeout, out.Failure.Kind)
}

func TestInvoke_FailureKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind models.FailureKind
	}{
		{ai.ErrAuth, models.FailureAuth},
		{ai.ErrRateLimited, models.FailureRateLimited},
		{ai.ErrProviderUnavailable, models.FailureProviderUnavailable},
		{fmt.Errorf("wrapped: %w", ai.ErrTimeout), models.FailureTimeout},
		{errors.New("something odd"), models.FailureProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			out := ai.Invoke(context.Background(), mock.NewFailingProvider("openai", tt.err), "prompt", params, time.Second)
			require.NotNil(t, out.Failure)
			assert.Equal(t, tt.kind, out.Failure.Kind)
			assert.NotEmpty(t, out.Failure.Message)
		})
	}
}

func TestInvoke_PanicBecomesFailure(t *testing.T) {
	out := ai.Invoke(context.Background(), mock.NewPanickingProvider("doubao"), "prompt", params, time.Second)

	require.NotNil(t, out.Failure)
	assert.Equal(t, models.FailureProviderUnavailable, out.Failure.Kind)
	assert.Contains(t, out.Failure.Message, "panic")
}

func TestInvoke_InvalidParamsNeverCallsProvider(t *testing.T) {
	p := mock.NewMockProvider("openai", "text")

	out := ai.Invoke(context.Background(), p, "", params, time.Second)
	require.NotNil(t, out.Failure)

	out = ai.Invoke(context.Background(), p, "prompt", models.CompletionParams{MaxTokens: 0}, time.Second)
	require.NotNil(t, out.Failure)

	out = ai.Invoke(context.Background(), p, "prompt", models.CompletionParams{MaxTokens: 10, Temperature: 2.1}, time.Second)
	require.NotNil(t, out.Failure)

	assert.Equal(t, 0, p.Calls())
}

func TestClassifyStatus(t *testing.T) {
	assert.ErrorIs(t, ai.ClassifyStatus(http.StatusUnauthorized), ai.ErrAuth)
	assert.ErrorIs(t, ai.ClassifyStatus(http.StatusForbidden), ai.ErrAuth)
	assert.ErrorIs(t, ai.ClassifyStatus(http.StatusTooManyRequests), ai.ErrRateLimited)
	assert.ErrorIs(t, ai.ClassifyStatus(http.StatusRequestTimeout), ai.ErrTimeout)
	assert.ErrorIs(t, ai.ClassifyStatus(http.StatusGatewayTimeout), ai.ErrTimeout)
	assert.ErrorIs(t, ai.ClassifyStatus(http.StatusBadGateway), ai.ErrProviderUnavailable)
	assert.ErrorIs(t, ai.ClassifyStatus(http.StatusBadRequest), ai.ErrInvalidResponse)
}

func TestStatusError_TruncatesBody(t *testing.T) {
	body := make([]byte, 500)
	for i := range body {
		body[i] = 'x'
	}
	err := ai.StatusError(http.StatusServiceUnavailable, string(body))

	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
	assert.Less(t, len(err.Error()), 300)
}

func TestTransportError(t *testing.T) {
	assert.ErrorIs(t, ai.TransportError(context.DeadlineExceeded), ai.ErrTimeout)
	assert.ErrorIs(t, ai.TransportError(errors.New("connection refused")), ai.ErrProviderUnavailable)
}

func TestCanonical(t *testing.T) {
	name, ok := ai.Canonical(" OpenAI ")
	assert.True(t, ok)
	assert.Equal(t, "openai", name)

	name, ok = ai.Canonical("claude")
	assert.True(t, ok)
	assert.Equal(t, "anthropic", name)

	_, ok = ai.Canonical("bard")
	assert.False(t, ok)

	assert.Len(t, ai.KnownProviders(), 6)
}

func TestRateLimited_PassThroughWhenDisabled(t *testing.T) {
	p := mock.NewMockProvider("openai", "x")
	assert.Same(t, p, ai.NewRateLimited(p, 0))
}

func TestRateLimited_WaitExceedsDeadline(t *testing.T) {
	p := mock.NewMockProvider("openai", "x")
	limited := ai.NewRateLimited(p, 1)
	assert.Equal(t, "openai", limited.Name())

	_, err := limited.Complete(context.Background(), "prompt", params)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, "prompt", params)
	require.Error(t, err)
	assert.Equal(t, 1, p.Calls())
}
