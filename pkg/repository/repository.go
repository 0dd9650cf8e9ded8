package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// ErrNotProvisioned indicates that the backing store itself is absent:
// the table, collection or database the repository expects has not been
// created. Callers may treat reads as empty and degrade gracefully.
var ErrNotProvisioned = goerr.New("repository backend is not provisioned")

// ErrSessionNotFound indicates the requested session does not exist.
var ErrSessionNotFound = goerr.New("session not found")

// Repository defines the interface for conversation memory persistence.
// Events are append-only; the only destructive operation is DeleteSession,
// which removes the session and every event recorded under it.
type Repository interface {
	// PutSession saves a session to the repository
	PutSession(ctx context.Context, session *model.Session) error

	// GetSession retrieves a session by ID. Returns ErrSessionNotFound
	// when no session with the given ID exists.
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)

	// ListSessionsByActor retrieves sessions of an actor, newest first
	ListSessionsByActor(ctx context.Context, actorID model.ActorID, limit int) ([]*model.Session, error)

	// PutEvent appends an event
	PutEvent(ctx context.Context, event *model.MemoryEvent) error

	// ListEventsBySession retrieves events of a session in chronological
	// order, oldest first
	ListEventsBySession(ctx context.Context, sessionID model.SessionID, limit int) ([]*model.MemoryEvent, error)

	// ListEventsByActor retrieves events of an actor across all sessions,
	// newest first
	ListEventsByActor(ctx context.Context, actorID model.ActorID, limit int) ([]*model.MemoryEvent, error)

	// DeleteSession removes a session and all of its events. Deleting a
	// session that does not exist is not an error.
	DeleteSession(ctx context.Context, id model.SessionID) error

	// Close releases resources held by the repository
	Close() error
}
