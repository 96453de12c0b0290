package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// SweepHandler receives the scheduled Pub/Sub push that resets usage counters
// left behind on a prior calendar day. Lazy per-user rollover already covers
// active users; the sweep converges the rest so aggregate usage queries never
// see stale counters.
type SweepHandler struct {
	entitlementSvc service.EntitlementService
	logger         zerolog.Logger
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(entitlementSvc service.EntitlementService, logger zerolog.Logger) *SweepHandler {
	return &SweepHandler{entitlementSvc: entitlementSvc, logger: logger}
}

// RegisterRoutes mounts the internal sweep route behind push authentication.
func (h *SweepHandler) RegisterRoutes(mux *http.ServeMux, pushAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/internal/rollover-sweep", pushAuthMw(http.HandlerFunc(h.sweep)))
}

// sweep godoc
// @Summary Reset stale usage counters
// @Description Pub/Sub push target for the daily scheduler. Resets counters for all entitlement records whose last usage was on a prior day. Always acks: a failed sweep retries on the next schedule rather than through redelivery.
// @Tags internal
// @Accept json
// @Success 200 {string} string "ok"
// @Failure 405 {string} string "method not allowed"
// @Router /internal/rollover-sweep [post]
func (h *SweepHandler) sweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Malformed push body; ack so the subscription does not redeliver it.
		h.logger.Warn().Err(err).Msg("Ignoring malformed sweep push")
		w.WriteHeader(http.StatusOK)
		return
	}

	n, err := h.entitlementSvc.SweepStale(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", req.Message.MessageID).Msg("Rollover sweep failed")
		w.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Info().Int64("records", n).Str("message_id", req.Message.MessageID).Msg("Rollover sweep completed")
	w.WriteHeader(http.StatusOK)
}
