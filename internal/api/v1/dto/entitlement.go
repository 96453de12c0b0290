package dto

import "time"

// EntitlementResponseDTO is the decision-ready view of a user's entitlement.
type EntitlementResponseDTO struct {
	UserID      string          `json:"user_id"`
	Plan        string          `json:"plan"`
	IsPro       bool            `json:"is_pro"`
	Role        string          `json:"role"`
	Usage       map[string]int  `json:"usage"`
	Limits      map[string]int  `json:"limits"`
	CanUse      map[string]bool `json:"can_use"`
	LastUsageAt time.Time       `json:"last_usage_at"`
}

// RecordUsageDTO is used for incoming usage-recording requests.
type RecordUsageDTO struct {
	Feature string `json:"feature" validate:"required,min=1,max=100"`
}
