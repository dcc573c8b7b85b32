package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/travel-session/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventSessionRefreshed EventType = "session_refreshed"
	EventSessionEnded     EventType = "session_ended"
)

// Event represents a session lifecycle signal. Listeners of session_ended need no payload;
// the ids are there for logging.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Trigger   domain.Trigger `json:"trigger,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   interface{}    `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, sessionID, userID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
	Restored  bool        `json:"restored"`
}
