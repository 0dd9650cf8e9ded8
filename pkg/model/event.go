package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidRole = goerr.New("invalid role")

type EventID string

// NewEventID generates a new unique EventID
func NewEventID() EventID {
	return EventID("evt-" + uuid.New().String())
}

type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleSystem    Role = "SYSTEM"
)

// Validate checks if the role is valid
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return nil
	default:
		return goerr.Wrap(ErrInvalidRole, "unknown role", goerr.V("role", r))
	}
}

// MemoryEvent is a single conversation turn within a session. Events are
// append-only: once created they are never updated, and they are removed
// only when their session is deleted.
type MemoryEvent struct {
	ID        EventID
	ActorID   ActorID
	SessionID SessionID
	Role      Role
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

// Validate checks if the event has all required fields
func (e *MemoryEvent) Validate() error {
	if e.ID == "" {
		return goerr.New("event id is empty")
	}
	if e.SessionID == "" {
		return goerr.New("event session id is empty", goerr.V("event_id", e.ID))
	}
	if e.ActorID == "" {
		return goerr.New("event actor id is empty", goerr.V("event_id", e.ID))
	}
	return e.Role.Validate()
}
