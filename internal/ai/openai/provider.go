package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/config"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// Provider implements models.Provider for any OpenAI-compatible chat completions API.
// The same type serves openai, deepseek, doubao and vllm; only the name and endpoint differ.
type Provider struct {
	name   string
	model  string
	client openaisdk.Client
}

func NewProvider(name string, cfg config.OpenAICompatConfig) *Provider {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// vLLM accepts any bearer token when started without --api-key.
		opts = append(opts, option.WithAPIKey("EMPTY"))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		name:   name,
		model:  cfg.Model,
		client: openaisdk.NewClient(opts...),
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Complete(ctx context.Context, prompt string, params models.CompletionParams) (models.Completion, error) {
	start := time.Now()

	resp, err := p.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(p.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
		MaxTokens:   openaisdk.Int(int64(params.MaxTokens)),
		Temperature: openaisdk.Float(params.Temperature),
	})
	if err != nil {
		return models.Completion{}, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return models.Completion{}, fmt.Errorf("%w: no choices returned", ai.ErrInvalidResponse)
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return models.Completion{}, ai.ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}

	return models.Completion{
		Text:      text,
		Model:     model,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

func classifyError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ai.ClassifyStatus(apiErr.StatusCode), apiErr.Error())
	}
	return ai.TransportError(err)
}

var _ models.Provider = (*Provider)(nil)
