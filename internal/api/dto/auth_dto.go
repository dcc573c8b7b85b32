package dto

import (
	"time"

	"github.com/spec-kit/travel-session/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest payload for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is the login, registration and refresh response consumed by the client.
type AuthResponse struct {
	User                domain.UserProfile `json:"user"`
	Token               string             `json:"token"`
	RefreshToken        string             `json:"refreshToken,omitempty"`
	TokenExpirationTime time.Time          `json:"tokenExpirationTime"`
}
