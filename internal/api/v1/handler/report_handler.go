package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ReportHandler serves a user's saved reports and CSV exports.
type ReportHandler struct {
	reportSvc service.ReportService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportSvc service.ReportService, v *validator.Validate, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 report routes.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/reports", authMw(http.HandlerFunc(h.reports)))
	mux.Handle("/reports/", authMw(http.HandlerFunc(h.reportByID)))
}

func (h *ReportHandler) reports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listReports(w, r)
	case http.MethodPost:
		h.createReport(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ReportHandler) reportByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/reports/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodGet:
			h.getReport(w, r, parts[0])
		case http.MethodDelete:
			h.deleteReport(w, r, parts[0])
		default:
			http.NotFound(w, r)
		}
	case len(parts) == 2 && parts[1] == "export" && r.Method == http.MethodGet:
		h.exportReport(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// listReports godoc
// @Summary List saved reports
// @Description Returns the caller's saved reports, newest first.
// @Tags reports
// @Produce json
// @Success 200 {array} dto.ReportResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /reports [get]
func (h *ReportHandler) listReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	reports, err := h.reportSvc.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]dto.ReportResponseDTO, 0, len(reports))
	for _, rep := range reports {
		resp = append(resp, reportToDTO(&rep))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// createReport godoc
// @Summary Save a report
// @Description Persists an analysis result for the caller. The payload is stored opaquely.
// @Tags reports
// @Accept json
// @Produce json
// @Param report body dto.ReportCreateDTO true "Report to save"
// @Success 201 {object} dto.ReportResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Router /reports [post]
func (h *ReportHandler) createReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ReportCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := h.reportSvc.Save(r.Context(), &model.Report{
		UserID:  userID,
		Type:    req.Type,
		Query:   req.Query,
		Payload: req.Payload,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(reportToDTO(rep)); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// getReport godoc
// @Summary Get a saved report
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} dto.ReportResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "report not found"
// @Router /reports/{id} [get]
func (h *ReportHandler) getReport(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	rep, err := h.reportSvc.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reportToDTO(rep)); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// deleteReport godoc
// @Summary Delete a saved report
// @Tags reports
// @Param id path string true "Report ID"
// @Success 204 {string} string "no content"
// @Failure 401 {string} string "unauthorized"
// @Router /reports/{id} [delete]
func (h *ReportHandler) deleteReport(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.reportSvc.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportReport godoc
// @Summary Export a report as CSV
// @Description Renders the report to CSV, uploads it to object storage and returns a short-lived download URL.
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} dto.ReportExportResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "report not found"
// @Router /reports/{id}/export [get]
func (h *ReportHandler) exportReport(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	url, err := h.reportSvc.ExportCSV(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto.ReportExportResponseDTO{URL: url}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ReportHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrReportNotFound):
		http.Error(w, "Report not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrStoreUnavailable):
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func reportToDTO(rep *model.Report) dto.ReportResponseDTO {
	return dto.ReportResponseDTO{
		ID:        rep.ID,
		Type:      rep.Type,
		Query:     rep.Query,
		Payload:   rep.Payload,
		CreatedAt: rep.CreatedAt,
	}
}
