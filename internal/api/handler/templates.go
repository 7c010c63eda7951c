package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/brandlens/internal/api/middleware"
	"github.com/kiranshivaraju/brandlens/internal/api/response"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"github.com/kiranshivaraju/brandlens/pkg/prompttpl"
)

const (
	defaultTemplateCategory = "general"
	maxTemplateNameLen      = 100
)

// TemplateStore persists prompt templates.
type TemplateStore interface {
	TemplateSource
	SaveTemplate(ctx context.Context, tpl *models.PromptTemplate) error
	GetTemplates(ctx context.Context, category string) ([]*models.PromptTemplate, error)
}

// NewCreateTemplateHandler returns an http.HandlerFunc for POST /api/v1/templates.
// Variables default to every placeholder typed "string"; when given, every
// placeholder must be declared.
func NewCreateTemplateHandler(templates TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			Name        string            `json:"name"`
			Category    string            `json:"category"`
			Template    string            `json:"template"`
			Variables   map[string]string `json:"variables"`
			Description *string           `json:"description"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			badRequest(w, "name is required")
			return
		}
		if len(req.Name) > maxTemplateNameLen {
			badRequest(w, "name must be at most 100 characters")
			return
		}
		if strings.TrimSpace(req.Template) == "" {
			badRequest(w, "template is required")
			return
		}

		variables := req.Variables
		if variables == nil {
			variables = make(map[string]string)
			for _, name := range prompttpl.Variables(req.Template) {
				variables[name] = "string"
			}
		} else if missing := prompttpl.Undeclared(req.Template, variables); len(missing) > 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"template uses undeclared variables", map[string]any{"undeclared": missing})
			return
		}

		category := strings.ToLower(strings.TrimSpace(req.Category))
		if category == "" {
			category = defaultTemplateCategory
		}

		now := time.Now().UTC()
		tpl := &models.PromptTemplate{
			ID:          uuid.New(),
			OwnerID:     userID,
			Name:        req.Name,
			Category:    category,
			Template:    req.Template,
			Variables:   variables,
			Description: req.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err := templates.SaveTemplate(r.Context(), tpl)
		if errors.Is(err, store.ErrDuplicateKey) {
			response.Error(w, http.StatusConflict, "CONFLICT", "A template with this name already exists", nil)
			return
		}
		if err != nil {
			internalError(w, r, "Failed to save template", err)
			return
		}

		response.Created(w, tpl)
	}
}

// NewListTemplatesHandler returns an http.HandlerFunc for GET /api/v1/templates?category=.
func NewListTemplatesHandler(templates TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))

		list, err := templates.GetTemplates(r.Context(), category)
		if err != nil {
			internalError(w, r, "Failed to list templates", err)
			return
		}
		if list == nil {
			list = []*models.PromptTemplate{}
		}

		response.JSON(w, list)
	}
}

// NewUseTemplateHandler returns an http.HandlerFunc for
// POST /api/v1/templates/{templateID}/use. It renders the template and
// counts the use.
func NewUseTemplateHandler(templates TemplateSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "templateID")
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		var req struct {
			Variables map[string]string `json:"variables"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}

		tpl, err := templates.GetTemplate(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Template not found")
			return
		}
		if err != nil {
			internalError(w, r, "Failed to load template", err)
			return
		}

		prompt, err := prompttpl.Render(tpl.Template, req.Variables)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		count, err := templates.IncrementTemplateUsage(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Template not found")
			return
		}
		if err != nil {
			internalError(w, r, "Failed to record template use", err)
			return
		}

		response.JSON(w, map[string]any{
			"template_id": id,
			"prompt":      prompt,
			"usage_count": count,
		})
	}
}
