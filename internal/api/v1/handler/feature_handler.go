package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// FeatureHandler exposes the read side of the feature flag registry. Writes
// go through AdminHandler.
type FeatureHandler struct {
	registry service.FeatureRegistry
	logger   zerolog.Logger
}

// NewFeatureHandler creates a new FeatureHandler.
func NewFeatureHandler(registry service.FeatureRegistry, logger zerolog.Logger) *FeatureHandler {
	return &FeatureHandler{registry: registry, logger: logger}
}

// RegisterRoutes mounts v1 feature routes.
func (h *FeatureHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/features", authMw(http.HandlerFunc(h.listFeatures)))
	mux.Handle("/features/stream", authMw(http.HandlerFunc(h.streamFeatures)))
}

func featuresToDTO(flags []model.FeatureFlag) []dto.FeatureResponseDTO {
	out := make([]dto.FeatureResponseDTO, len(flags))
	for i, f := range flags {
		out[i] = dto.FeatureResponseDTO{
			ID:        f.ID,
			Name:      f.Name,
			Enabled:   f.Enabled,
			CreatedAt: f.CreatedAt,
		}
	}
	return out
}

// listFeatures godoc
// @Summary List all feature flags
// @Description Returns the latest cached snapshot of the global flag collection. Names that are absent are disabled.
// @Tags features
// @Produce json
// @Success 200 {array} dto.FeatureResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /features [get]
func (h *FeatureHandler) listFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(featuresToDTO(h.registry.Flags())); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// streamFeatures godoc
// @Summary Stream feature flag snapshots
// @Description Server-sent events stream emitting the whole flag collection after every committed change, including changes made by the caller.
// @Tags features
// @Produce text/event-stream
// @Success 200 {array} dto.FeatureResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /features/stream [get]
func (h *FeatureHandler) streamFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	stream, err := h.registry.Watch(r.Context())
	if err != nil {
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	defer stream.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	for flags := range stream.Snapshots() {
		data, err := json.Marshal(featuresToDTO(flags))
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to marshal feature snapshot")
			return
		}
		if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
			return
		}
		flusher.Flush()
	}
	if err := stream.Err(); err != nil {
		h.logger.Warn().Err(err).Msg("Feature stream ended with error")
	}
}
