package dto

import "github.com/certilink/certilink-api/internal/models"

// LoginRequest holds credentials plus the principal kind being claimed.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin institution learner"`
}

// PrincipalInfo describes the authenticated principal in responses.
type PrincipalInfo struct {
	ID     string                   `json:"id"`
	Email  string                   `json:"email"`
	Name   string                   `json:"name"`
	Role   models.Role              `json:"role"`
	Status models.InstitutionStatus `json:"status,omitempty"`
}

// LoginResponse returns the issued token and principal info.
type LoginResponse struct {
	User      PrincipalInfo `json:"user"`
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expires_in"`
}
