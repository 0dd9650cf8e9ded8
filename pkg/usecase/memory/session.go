package memory

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// CreateSessionInput describes a session to start. SessionID is optional;
// a new one is generated when empty.
type CreateSessionInput struct {
	SessionID model.SessionID
	ActorID   model.ActorID
	Title     string
	Tags      []string
}

func (x *CreateSessionInput) Validate() error {
	if x.ActorID == "" {
		return goerr.New("actor id is required")
	}
	return nil
}

// CreateSession starts a new session and persists it. When the backend is
// not provisioned the session is still returned so callers keep working
// without durable storage.
func (u *UseCase) CreateSession(ctx context.Context, input *CreateSessionInput) (*model.Session, error) {
	if err := input.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid session input")
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = model.NewSessionID()
	}

	session := &model.Session{
		ID:        sessionID,
		ActorID:   input.ActorID,
		StartTime: u.now(),
		Title:     input.Title,
		Tags:      input.Tags,
	}

	if err := u.repo.PutSession(ctx, session); err != nil {
		if errors.Is(err, repository.ErrNotProvisioned) {
			logging.From(ctx).Warn("session store not provisioned, session is not persisted",
				"session_id", session.ID)
			return session, nil
		}
		return nil, err
	}

	return session, nil
}

// GetSession retrieves a session. A session that does not exist yet is
// created on the fly: callers may hand out session IDs before the first
// event arrives.
func (u *UseCase) GetSession(ctx context.Context, id model.SessionID, actorID model.ActorID) (*model.Session, error) {
	if id == "" {
		return nil, goerr.New("session id is required")
	}

	session, err := u.repo.GetSession(ctx, id)
	if err == nil {
		return session, nil
	}

	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		session := &model.Session{ID: id, ActorID: actorID, StartTime: u.now()}
		if err := u.repo.PutSession(ctx, session); err != nil {
			if errors.Is(err, repository.ErrNotProvisioned) {
				logging.From(ctx).Warn("session store not provisioned, session is not persisted",
					"session_id", id)
				return session, nil
			}
			return nil, err
		}
		return session, nil
	case errors.Is(err, repository.ErrNotProvisioned):
		logging.From(ctx).Warn("session store not provisioned, returning new session",
			"session_id", id)
		return &model.Session{ID: id, ActorID: actorID, StartTime: u.now()}, nil
	default:
		return nil, err
	}
}

// ListSessions retrieves the sessions of an actor, newest first.
func (u *UseCase) ListSessions(ctx context.Context, actorID model.ActorID, limit int) ([]*model.Session, error) {
	if actorID == "" {
		return nil, goerr.New("actor id is required")
	}
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	sessions, err := u.repo.ListSessionsByActor(ctx, actorID, limit)
	if err != nil {
		if errors.Is(err, repository.ErrNotProvisioned) {
			logging.From(ctx).Warn("session store not provisioned, returning no sessions",
				"actor_id", actorID)
			return nil, nil
		}
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session and all of its events. It reports
// whether the deletion was applied; deleting an absent session still
// succeeds.
func (u *UseCase) DeleteSession(ctx context.Context, id model.SessionID) (bool, error) {
	if id == "" {
		return false, goerr.New("session id is required")
	}

	if err := u.repo.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotProvisioned) {
			logging.From(ctx).Warn("session store not provisioned, nothing to delete",
				"session_id", id)
			return true, nil
		}
		return false, err
	}
	return true, nil
}
