package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/internal/analytics"
	"github.com/kiranshivaraju/brandlens/internal/api/response"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// Analytics aggregates mention history.
type Analytics interface {
	BrandStats(ctx context.Context, projectID uuid.UUID, brand, timeframe string) (*models.BrandStats, error)
	CompareBrands(ctx context.Context, projectID uuid.UUID, brands []string, timeframe string) ([]models.BrandComparison, error)
}

// NewBrandStatsHandler returns an http.HandlerFunc for GET /api/v1/analytics.
// Query: project_id, brand (required), timeframe (e.g. 7d, default 30d).
func NewBrandStatsHandler(svc Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		projectID, err := requiredProjectID(q.Get("project_id"))
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		stats, err := svc.BrandStats(r.Context(), projectID, q.Get("brand"), q.Get("timeframe"))
		if err != nil {
			writeAnalyticsError(w, r, err)
			return
		}

		response.JSON(w, stats)
	}
}

// NewCompareHandler returns an http.HandlerFunc for GET /api/v1/compare.
// Query: project_id, brands (comma separated), timeframe.
func NewCompareHandler(svc Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		projectID, err := requiredProjectID(q.Get("project_id"))
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		var brands []string
		for _, b := range strings.Split(q.Get("brands"), ",") {
			if b = strings.TrimSpace(b); b != "" {
				brands = append(brands, b)
			}
		}

		ranking, err := svc.CompareBrands(r.Context(), projectID, brands, q.Get("timeframe"))
		if err != nil {
			writeAnalyticsError(w, r, err)
			return
		}

		tf, _, _ := analytics.ParseTimeframe(q.Get("timeframe"))
		response.JSON(w, map[string]any{
			"timeframe": tf,
			"brands":    ranking,
		})
	}
}

func writeAnalyticsError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, analytics.ErrInvalidInput) {
		badRequest(w, err.Error())
		return
	}
	internalError(w, r, "Failed to compute analytics", err)
}
