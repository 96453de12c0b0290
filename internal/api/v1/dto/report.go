package dto

import (
	"encoding/json"
	"time"
)

// ReportCreateDTO is used for incoming save-report requests.
type ReportCreateDTO struct {
	Type    string          `json:"type" validate:"required,min=1,max=50"`
	Query   string          `json:"query" validate:"required,min=1,max=500"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// ReportResponseDTO is returned in API responses.
type ReportResponseDTO struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Query     string          `json:"query"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReportExportResponseDTO carries the presigned download URL of an export.
type ReportExportResponseDTO struct {
	URL string `json:"url"`
}
