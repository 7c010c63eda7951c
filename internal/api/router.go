package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/brandlens/internal/api/middleware"
	"github.com/kiranshivaraju/brandlens/internal/api/response"
	"github.com/kiranshivaraju/brandlens/internal/metrics"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Metrics   *metrics.Metrics

	HealthHandler     http.HandlerFunc
	DetectHandler     http.HandlerFunc
	ListChecks        http.HandlerFunc
	GetCheck          http.HandlerFunc
	CheckStatus       http.HandlerFunc
	BrandStatsHandler http.HandlerFunc
	CompareHandler    http.HandlerFunc
	CreateTemplate    http.HandlerFunc
	ListTemplates     http.HandlerFunc
	UseTemplate       http.HandlerFunc
	CreateKeyHandler  http.HandlerFunc
	ListKeysHandler   http.HandlerFunc
	RevokeKeyHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Instrument(deps.Metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Public ops endpoints
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Handle("/metrics", deps.Metrics.Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(mw.ScopeDetect))

			r.Post("/api/v1/detect", orNotImplemented(deps.DetectHandler))
			r.Post("/api/v1/templates", orNotImplemented(deps.CreateTemplate))
			r.Post("/api/v1/templates/{templateID}/use", orNotImplemented(deps.UseTemplate))
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(mw.ScopeRead))

			r.Get("/api/v1/checks", orNotImplemented(deps.ListChecks))
			r.Get("/api/v1/checks/{checkID}", orNotImplemented(deps.GetCheck))
			r.Get("/api/v1/checks/{checkID}/status", orNotImplemented(deps.CheckStatus))

			r.Get("/api/v1/analytics", orNotImplemented(deps.BrandStatsHandler))
			r.Get("/api/v1/compare", orNotImplemented(deps.CompareHandler))

			r.Get("/api/v1/templates", orNotImplemented(deps.ListTemplates))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(mw.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
