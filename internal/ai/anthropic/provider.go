package anthropic

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

const apiVersion = "2023-06-01"

// Provider implements models.Provider using the Anthropic Messages API.
type Provider struct {
	model  string
	client *resty.Client
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{
		model: cfg.Model,
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetHeader("x-api-key", cfg.APIKey).
			SetHeader("anthropic-version", apiVersion).
			SetHeader("Content-Type", "application/json"),
	}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Complete(ctx context.Context, prompt string, params models.CompletionParams) (models.Completion, error) {
	start := time.Now()

	// Anthropic caps temperature at 1.0.
	temperature := params.Temperature
	if temperature > 1 {
		temperature = 1
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(messagesRequest{
			Model:       p.model,
			MaxTokens:   params.MaxTokens,
			Temperature: temperature,
			Messages:    []message{{Role: "user", Content: prompt}},
		}).
		Post("/v1/messages")
	if err != nil {
		return models.Completion{}, ai.TransportError(err)
	}

	if resp.IsError() {
		return models.Completion{}, ai.StatusError(resp.StatusCode(), resp.String())
	}

	var body messagesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.Completion{}, fmt.Errorf("%w: decoding messages response: %v", ai.ErrInvalidResponse, err)
	}

	var sb strings.Builder
	for _, block := range body.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return models.Completion{}, ai.ErrEmptyResponse
	}

	model := body.Model
	if model == "" {
		model = p.model
	}

	return models.Completion{
		Text:      sb.String(),
		Model:     model,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

var _ models.Provider = (*Provider)(nil)
