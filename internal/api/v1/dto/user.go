package dto

import "time"

// UserCreateDTO is used for incoming create requests
type UserCreateDTO struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
