package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID("sess-" + uuid.New().String())
}

type ActorID string

// Session is a logical grouping of conversation events. It is created on the
// first interaction and stays active until it is deleted; EndTime is
// informational and does not close the session for queries.
type Session struct {
	ID        SessionID
	ActorID   ActorID
	StartTime time.Time
	EndTime   *time.Time
	Title     string
	Tags      []string
}

// Validate checks if the session is valid
func (s *Session) Validate() error {
	if s.ID == "" {
		return goerr.New("session id is empty")
	}
	if s.StartTime.IsZero() {
		return goerr.New("session start time is not set", goerr.V("session_id", s.ID))
	}
	return nil
}
