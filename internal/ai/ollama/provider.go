package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/config"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// Provider implements models.Provider using a local Ollama server's /api/chat endpoint.
type Provider struct {
	model  string
	client *resty.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	return &Provider{
		model: cfg.Model,
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetHeader("Content-Type", "application/json"),
	}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Complete(ctx context.Context, prompt string, params models.CompletionParams) (models.Completion, error) {
	start := time.Now()

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    p.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
			Stream:   false,
			Options: chatOptions{
				Temperature: params.Temperature,
				NumPredict:  params.MaxTokens,
			},
		}).
		Post("/api/chat")
	if err != nil {
		return models.Completion{}, ai.TransportError(err)
	}

	// Ollama answers 404 when the model has not been pulled.
	if resp.StatusCode() == 404 {
		return models.Completion{}, fmt.Errorf("%w: model %q not found", ai.ErrProviderUnavailable, p.model)
	}
	if resp.IsError() {
		return models.Completion{}, ai.StatusError(resp.StatusCode(), resp.String())
	}

	var body chatResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.Completion{}, fmt.Errorf("%w: decoding chat response: %v", ai.ErrInvalidResponse, err)
	}

	if body.Message.Content == "" {
		return models.Completion{}, ai.ErrEmptyResponse
	}

	model := body.Model
	if model == "" {
		model = p.model
	}

	return models.Completion{
		Text:      body.Message.Content,
		Model:     model,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

var _ models.Provider = (*Provider)(nil)
