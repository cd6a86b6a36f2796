package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	Role       domain.Role       `json:"role"`
	Department domain.Department `json:"department"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserResponse is the public account representation.
type UserResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Role       domain.Role       `json:"role"`
	Department domain.Department `json:"department"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// FromUser maps a domain user to its response shape.
func FromUser(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
		CreatedAt:  user.CreatedAt,
	}
}
