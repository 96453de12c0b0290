package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// EntitlementHandler exposes the current user's entitlement: snapshot reads,
// a live SSE stream, usage recording and plan upgrade.
type EntitlementHandler struct {
	entSvc   service.EntitlementService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewEntitlementHandler creates a new EntitlementHandler.
func NewEntitlementHandler(entSvc service.EntitlementService, v *validator.Validate, logger zerolog.Logger) *EntitlementHandler {
	return &EntitlementHandler{entSvc: entSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 entitlement routes.
func (h *EntitlementHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/entitlements/me", authMw(http.HandlerFunc(h.getEntitlement)))
	mux.Handle("/entitlements/me/stream", authMw(http.HandlerFunc(h.streamEntitlement)))
	mux.Handle("/entitlements/me/usage", authMw(http.HandlerFunc(h.recordUsage)))
	mux.Handle("/entitlements/me/upgrade", authMw(http.HandlerFunc(h.upgrade)))
}

// entitlementToDTO maps the model to its decision-ready response shape.
func entitlementToDTO(ent *model.UserEntitlement) dto.EntitlementResponseDTO {
	limits := make(map[string]int, len(service.FreePlanLimits))
	canUse := make(map[string]bool, len(service.FreePlanLimits))
	for key, limit := range service.FreePlanLimits {
		limits[key] = limit
		canUse[key] = service.CanUse(ent, key)
	}
	usage := ent.Usage
	if usage == nil {
		usage = map[string]int{}
	}
	return dto.EntitlementResponseDTO{
		UserID:      ent.UserID,
		Plan:        string(ent.Plan),
		IsPro:       service.IsPro(ent),
		Role:        string(ent.Role),
		Usage:       usage,
		Limits:      limits,
		CanUse:      canUse,
		LastUsageAt: ent.LastUsageAt,
	}
}

// getEntitlement godoc
// @Summary Get the current user's entitlement
// @Description Returns plan, role, usage counters, daily limits and per-feature canUse decisions, with daily rollover applied.
// @Tags entitlements
// @Produce json
// @Success 200 {object} dto.EntitlementResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "store unavailable"
// @Router /entitlements/me [get]
func (h *EntitlementHandler) getEntitlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	ent, err := h.entSvc.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entitlementToDTO(ent))
}

// streamEntitlement godoc
// @Summary Stream entitlement snapshots
// @Description Server-sent events stream emitting a fresh entitlement snapshot after every committed change, with rollover corrections applied through the store.
// @Tags entitlements
// @Produce text/event-stream
// @Success 200 {object} dto.EntitlementResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /entitlements/me/stream [get]
func (h *EntitlementHandler) streamEntitlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	watch, err := h.entSvc.Watch(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer watch.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	for ent := range watch.Snapshots() {
		data, err := json.Marshal(entitlementToDTO(ent))
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to marshal entitlement snapshot")
			return
		}
		if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
			return
		}
		flusher.Flush()
	}
	if err := watch.Err(); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Entitlement stream ended with error")
	}
}

// recordUsage godoc
// @Summary Record one use of a metered feature
// @Description Counts one use against the daily cap. The limit check and the increment are separate steps, so the cap is advisory under concurrency.
// @Tags entitlements
// @Accept json
// @Produce json
// @Param usage body dto.RecordUsageDTO true "Feature key to record"
// @Success 200 {object} dto.EntitlementResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 429 {string} string "daily limit reached"
// @Router /entitlements/me/usage [post]
func (h *EntitlementHandler) recordUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.RecordUsageDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	ent, err := h.entSvc.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !service.CanUse(ent, req.Feature) {
		http.Error(w, "Daily limit reached for feature: "+req.Feature, http.StatusTooManyRequests)
		return
	}

	if err := h.entSvc.RecordUse(r.Context(), userID, req.Feature); err != nil {
		h.writeError(w, err)
		return
	}
	ent, err = h.entSvc.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entitlementToDTO(ent))
}

// upgrade godoc
// @Summary Upgrade the current user to the pro plan
// @Description Flips the plan to pro. Billing is handled elsewhere; this endpoint only changes the entitlement record.
// @Tags entitlements
// @Produce json
// @Success 200 {object} dto.EntitlementResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "store unavailable"
// @Router /entitlements/me/upgrade [post]
func (h *EntitlementHandler) upgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.entSvc.Upgrade(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	ent, err := h.entSvc.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entitlementToDTO(ent))
}

func (h *EntitlementHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *EntitlementHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrStoreUnavailable):
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
