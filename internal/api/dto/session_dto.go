package dto

import (
	"time"

	"github.com/spec-kit/travel-session/internal/domain"
)

// SessionResponse describes the client session.
type SessionResponse struct {
	State            string              `json:"state"`
	Authenticated    bool                `json:"authenticated"`
	SessionID        string              `json:"session_id,omitempty"`
	User             *domain.UserProfile `json:"user,omitempty"`
	ExpiresAt        *time.Time          `json:"expires_at,omitempty"`
	RemainingSeconds int64               `json:"remaining_seconds"`
}

// NavigationRequest reports the view the UI is showing.
type NavigationRequest struct {
	Path string `json:"path"`
}

// NavigationResponse describes the current view.
type NavigationResponse struct {
	Current  string `json:"current"`
	Previous string `json:"previous,omitempty"`
}
