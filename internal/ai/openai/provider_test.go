package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/ai/openai"
	"github.com/kiranshivaraju/brandlens/internal/config"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var params = models.CompletionParams{MaxTokens: 300, Temperature: 0.3}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "deepseek-chat",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete_Success(t *testing.T) {
	var req map[string]any
	srv := newServer(t, http.StatusOK, completionBody("I recommend Notion."), &req)

	p := openai.NewProvider("deepseek", config.OpenAICompatConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "deepseek-chat"})
	assert.Equal(t, "deepseek", p.Name())

	c, err := p.Complete(context.Background(), "best notes app?", params)
	require.NoError(t, err)
	assert.Equal(t, "I recommend Notion.", c.Text)
	assert.Equal(t, "deepseek-chat", c.Model)

	assert.Equal(t, "deepseek-chat", req["model"])
	assert.EqualValues(t, 300, req["max_tokens"])
	assert.InDelta(t, 0.3, req["temperature"], 1e-9)
}

func TestComplete_EmptyContent(t *testing.T) {
	srv := newServer(t, http.StatusOK, completionBody(""), nil)
	p := openai.NewProvider("openai", config.OpenAICompatConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"})

	_, err := p.Complete(context.Background(), "prompt", params)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestComplete_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ai.ErrAuth},
		{http.StatusTooManyRequests, ai.ErrRateLimited},
		{http.StatusServiceUnavailable, ai.ErrProviderUnavailable},
		{http.StatusGatewayTimeout, ai.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newServer(t, tt.status, `{"error":{"message":"nope","type":"error"}}`, nil)
			p := openai.NewProvider("openai", config.OpenAICompatConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"})

			_, err := p.Complete(context.Background(), "prompt", params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComplete_Unreachable(t *testing.T) {
	srv := newServer(t, http.StatusOK, "", nil)
	srv.Close()

	p := openai.NewProvider("vllm", config.OpenAICompatConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "mistral"})
	_, err := p.Complete(context.Background(), "prompt", params)
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
}
