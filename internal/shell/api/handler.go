// Package api provides the read-only introspection HTTP API: the resource
// manifest with template expressions, and recorded provisioning state.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clickhost/clickhost/internal/core/resource"
	"github.com/clickhost/clickhost/internal/shell/store"
)

// =============================================================================
// Handler
// =============================================================================

// Handler serves the introspection API.
type Handler struct {
	registry *resource.Registry
	store    store.Store
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(registry *resource.Registry, s store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		store:    s,
		logger:   logger.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)

	r.Get("/health", h.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/resources", h.handleListResources)
		r.Get("/resources/{name}", h.handleGetResource)
		r.Get("/provisions", h.handleListProvisions)
	})

	return r
}

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handler
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// =============================================================================
// Resource Handlers
// =============================================================================

func (h *Handler) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources := h.registry.Resources()
	out := make([]ResourceResponse, 0, len(resources))
	for _, res := range resources {
		out = append(out, resourceToResponse(res))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetResource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res, ok := h.registry.Get(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "resource not found", "not_found")
		return
	}
	h.writeJSON(w, http.StatusOK, resourceToResponse(res))
}

// =============================================================================
// Provision Handlers
// =============================================================================

func (h *Handler) handleListProvisions(w http.ResponseWriter, r *http.Request) {
	provisions, err := h.store.ListProvisions(r.Context())
	if err != nil {
		h.logger.Error("failed to list provisions", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list provisions", "store_error")
		return
	}

	out := make([]ProvisionResponse, 0, len(provisions))
	for _, p := range provisions {
		out = append(out, ProvisionResponse{
			ID:           p.ID,
			RunID:        p.RunID,
			ServerName:   p.ServerName,
			ResourceName: p.ResourceName,
			DatabaseName: p.DatabaseName,
			Status:       string(p.Status),
			Error:        p.Error,
			CreatedAt:    p.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// Helpers
// =============================================================================

func resourceToResponse(res resource.Resource) ResourceResponse {
	resp := ResourceResponse{
		Name:       res.Name(),
		Properties: make([]PropertyResponse, 0),
	}

	for _, p := range res.ConnectionProperties() {
		resp.Properties = append(resp.Properties, PropertyResponse{
			Key:        p.Key,
			Expression: p.Value.Template(),
		})
	}

	switch r := res.(type) {
	case *resource.ServerResource:
		resp.Type = "server"
		resp.ConnectionStringTemplate = r.ConnectionStringExpression().Template()
	case *resource.DatabaseResource:
		resp.Type = "database"
		resp.ConnectionStringTemplate = r.ConnectionStringExpression().Template()
	case *resource.ParameterResource:
		resp.Type = "parameter"
	default:
		resp.Type = "resource"
	}

	return resp
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
