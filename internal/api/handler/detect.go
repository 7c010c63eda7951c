package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/brandlens/internal/api/middleware"
	"github.com/kiranshivaraju/brandlens/internal/api/response"
	"github.com/kiranshivaraju/brandlens/internal/detection"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"github.com/kiranshivaraju/brandlens/pkg/prompttpl"
)

// Detector runs a detection check.
type Detector interface {
	Execute(ctx context.Context, req detection.Request) (*models.Check, error)
}

// TemplateSource resolves and counts prompt template uses.
type TemplateSource interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	IncrementTemplateUsage(ctx context.Context, id uuid.UUID) (int, error)
}

type detectRequest struct {
	ProjectID   string            `json:"project_id"`
	Prompt      string            `json:"prompt"`
	TemplateID  string            `json:"template_id"`
	Variables   map[string]string `json:"variables"`
	Brands      []string          `json:"brands"`
	Providers   []string          `json:"providers"`
	Mode        string            `json:"mode"`
	Strategy    string            `json:"strategy"`
	MaxTokens   *int              `json:"max_tokens"`
	Temperature *float64          `json:"temperature"`
	Metadata    map[string]any    `json:"metadata"`
}

// NewDetectHandler returns an http.HandlerFunc for POST /api/v1/detect.
// The check runs synchronously; the response carries the completed check
// with per-provider results and per-brand mentions.
func NewDetectHandler(svc Detector, templates TemplateSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req detectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}

		projectID, err := requiredProjectID(req.ProjectID)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		prompt := req.Prompt
		metadata := req.Metadata
		var templateID uuid.UUID
		if req.TemplateID != "" {
			if strings.TrimSpace(req.Prompt) != "" {
				badRequest(w, "prompt and template_id are mutually exclusive")
				return
			}
			templateID, err = uuid.Parse(req.TemplateID)
			if err != nil {
				badRequest(w, "template_id must be a valid UUID")
				return
			}
			tpl, err := templates.GetTemplate(r.Context(), templateID)
			if errors.Is(err, store.ErrNotFound) {
				notFound(w, "Template not found")
				return
			}
			if err != nil {
				internalError(w, r, "Failed to load template", err)
				return
			}
			prompt, err = prompttpl.Render(tpl.Template, req.Variables)
			if err != nil {
				badRequest(w, err.Error())
				return
			}
			if metadata == nil {
				metadata = map[string]any{}
			}
			metadata["template_id"] = templateID.String()
		}

		check, err := svc.Execute(r.Context(), detection.Request{
			ProjectID:   projectID,
			UserID:      userID,
			Prompt:      prompt,
			Brands:      req.Brands,
			Providers:   req.Providers,
			Mode:        models.ExecutionMode(strings.ToLower(req.Mode)),
			Strategy:    strings.ToLower(req.Strategy),
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			Metadata:    metadata,
		})
		if err != nil {
			writeDetectionError(w, r, err)
			return
		}

		if templateID != uuid.Nil {
			if _, err := templates.IncrementTemplateUsage(r.Context(), templateID); err != nil {
				slog.Warn("increment template usage failed", "template_id", templateID, "error", err)
			}
		}

		response.Created(w, check)
	}
}

func writeDetectionError(w http.ResponseWriter, r *http.Request, err error) {
	var fault *detection.FaultError
	switch {
	case errors.Is(err, detection.ErrValidation):
		badRequest(w, err.Error())
	case errors.As(err, &fault):
		var details any
		if fault.CheckID != uuid.Nil {
			details = map[string]any{"check_id": fault.CheckID}
		}
		slog.Error("check failed", "check_id", fault.CheckID, "reason", fault.Reason, "error", fault.Err)
		response.Error(w, http.StatusBadGateway, "ORCHESTRATION_FAULT", fault.Error(), details)
	default:
		internalError(w, r, "Detection failed", err)
	}
}
