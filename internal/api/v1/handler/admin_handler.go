package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminHandler exposes the authorization-gated feature flag mutations. The
// role check lives in the service; this handler only shapes requests.
type AdminHandler struct {
	adminSvc service.AdminService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminSvc service.AdminService, v *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 admin routes.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/features", authMw(http.HandlerFunc(h.createFeature)))
	mux.Handle("/admin/features/", authMw(http.HandlerFunc(h.toggleFeature)))
}

// createFeature godoc
// @Summary Create a feature flag
// @Description Registers a new globally scoped flag, enabled by default. Admin role required.
// @Tags admin
// @Accept json
// @Produce json
// @Param feature body dto.FeatureCreateDTO true "Feature flag to create"
// @Success 201 {object} dto.FeatureResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 409 {string} string "feature already exists"
// @Router /admin/features [post]
func (h *AdminHandler) createFeature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	actorID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || actorID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.FeatureCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	flag, err := h.adminSvc.CreateFeature(r.Context(), actorID, strings.TrimSpace(req.Name))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dto.FeatureResponseDTO{
		ID:        flag.ID,
		Name:      flag.Name,
		Enabled:   flag.Enabled,
		CreatedAt: flag.CreatedAt,
	}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// toggleFeature godoc
// @Summary Enable or disable a feature flag
// @Description Flips one flag by id. Admin role required. The change is observed by all sessions, including the caller's, through the push channel.
// @Tags admin
// @Accept json
// @Param id path string true "Feature flag ID"
// @Param toggle body dto.FeatureToggleDTO true "Desired enabled state"
// @Success 204 {string} string "no content"
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "feature not found"
// @Router /admin/features/{id} [patch]
func (h *AdminHandler) toggleFeature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.NotFound(w, r)
		return
	}
	actorID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || actorID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	flagID := strings.TrimPrefix(r.URL.Path, "/admin/features/")
	if flagID == "" || strings.Contains(flagID, "/") {
		http.NotFound(w, r)
		return
	}

	var req dto.FeatureToggleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.adminSvc.ToggleFeature(r.Context(), actorID, flagID, *req.Enabled); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, repository.ErrFeatureExists):
		http.Error(w, "Feature already exists", http.StatusConflict)
	case errors.Is(err, repository.ErrFeatureNotFound):
		http.Error(w, "Feature not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrStoreUnavailable):
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
