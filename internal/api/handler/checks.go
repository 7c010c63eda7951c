package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/internal/api/response"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// CheckReader reads persisted checks.
type CheckReader interface {
	GetCheck(ctx context.Context, id uuid.UUID) (*models.Check, error)
	ListChecks(ctx context.Context, filter store.CheckFilter) ([]*models.Check, int, error)
}

// StatusReader reports a check's lifecycle status.
type StatusReader interface {
	Status(ctx context.Context, id uuid.UUID) (string, error)
}

// NewListChecksHandler returns an http.HandlerFunc for GET /api/v1/checks.
// Query: project_id (required), page, page_size, brand, provider.
// page_size above store.MaxPageSize is clamped.
func NewListChecksHandler(checks CheckReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		projectID, err := requiredProjectID(q.Get("project_id"))
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		page, err := queryInt(r, "page", 1)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		pageSize, err := queryInt(r, "page_size", store.DefaultPageSize)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		page, pageSize, _ = store.NormalizePage(page, pageSize)

		items, total, err := checks.ListChecks(r.Context(), store.CheckFilter{
			ProjectID: projectID,
			Brand:     strings.TrimSpace(q.Get("brand")),
			Provider:  strings.ToLower(strings.TrimSpace(q.Get("provider"))),
			Page:      page,
			Limit:     pageSize,
		})
		if err != nil {
			internalError(w, r, "Failed to list checks", err)
			return
		}
		if items == nil {
			items = []*models.Check{}
		}

		response.Collection(w, items, response.NewPaginationMeta(page, pageSize, total))
	}
}

// NewGetCheckHandler returns an http.HandlerFunc for GET /api/v1/checks/{checkID}.
func NewGetCheckHandler(checks CheckReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "checkID")
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		check, err := checks.GetCheck(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Check not found")
			return
		}
		if err != nil {
			internalError(w, r, "Failed to load check", err)
			return
		}

		response.JSON(w, check)
	}
}

// NewCheckStatusHandler returns an http.HandlerFunc for GET /api/v1/checks/{checkID}/status.
func NewCheckStatusHandler(svc StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "checkID")
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		status, err := svc.Status(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Check not found")
			return
		}
		if err != nil {
			internalError(w, r, "Failed to load check status", err)
			return
		}

		response.JSON(w, map[string]any{
			"id":     id,
			"status": status,
		})
	}
}
