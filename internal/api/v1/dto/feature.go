package dto

import "time"

// FeatureResponseDTO is returned in API responses.
type FeatureResponseDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// FeatureCreateDTO is used for incoming create requests (admin only).
type FeatureCreateDTO struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// FeatureToggleDTO is used for incoming toggle requests (admin only).
// Enabled is a pointer so "false" is distinguishable from "missing".
type FeatureToggleDTO struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
