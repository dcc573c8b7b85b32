package domain

import "time"

// State is the lifecycle state of the client session.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	// StateExpiring marks a teardown in progress.
	StateExpiring
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "ANONYMOUS"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateExpiring:
		return "EXPIRING"
	default:
		return "UNKNOWN"
	}
}

// Trigger names what caused a session teardown.
type Trigger string

const (
	TriggerManualLogout Trigger = "manual_logout"
	TriggerScheduler    Trigger = "scheduler"
	TriggerValidator    Trigger = "validator"
	TriggerUnauthorized Trigger = "unauthorized"
	TriggerBootstrap    Trigger = "bootstrap"
)

// Session pairs a user profile with its bearer token.
type Session struct {
	ID             string
	User           *UserProfile
	Token          string
	RefreshToken   string
	ExpirationTime time.Time
	IssuedAt       time.Time
}

// Remaining returns the time left until expiration relative to now.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	remaining := s.ExpirationTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
