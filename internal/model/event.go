package model

import (
	"time"
)

// EventType represents the kind of session change.
type EventType string

const (
	EventAppended EventType = "appended"
	EventEdited   EventType = "edited"
	EventDeleted  EventType = "deleted"
	EventCleared  EventType = "cleared"
	EventStatus   EventType = "status"
)

// SessionEvent is delivered to session subscribers after each mutation.
type SessionEvent struct {
	Type      EventType     `json:"type"`
	Message   *Message      `json:"message,omitempty"`
	MessageID string        `json:"messageId,omitempty"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// HeartbeatEvent keeps event streams alive.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is a bridge-level error payload.
type ErrorEvent struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
