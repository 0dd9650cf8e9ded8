package memory

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// CreateEventInput describes a conversation turn to record.
type CreateEventInput struct {
	SessionID model.SessionID
	ActorID   model.ActorID
	Role      model.Role
	Content   string
	Metadata  map[string]any
}

func (x *CreateEventInput) Validate() error {
	if x.SessionID == "" {
		return goerr.New("session id is required")
	}
	if x.ActorID == "" {
		return goerr.New("actor id is required")
	}
	return x.Role.Validate()
}

// CreateEvent appends a conversation turn. The event is timestamped here,
// not by the caller, so one clock orders all events in a process. When the
// backend is not provisioned the event is returned unpersisted.
func (u *UseCase) CreateEvent(ctx context.Context, input *CreateEventInput) (*model.MemoryEvent, error) {
	if err := input.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid event input")
	}

	event := &model.MemoryEvent{
		ID:        model.NewEventID(),
		ActorID:   input.ActorID,
		SessionID: input.SessionID,
		Role:      input.Role,
		Content:   input.Content,
		Timestamp: u.now(),
		Metadata:  input.Metadata,
	}

	if err := u.repo.PutEvent(ctx, event); err != nil {
		if errors.Is(err, repository.ErrNotProvisioned) {
			logging.From(ctx).Warn("event store not provisioned, event is not persisted",
				"event_id", event.ID, "session_id", event.SessionID)
			return event, nil
		}
		return nil, err
	}

	return event, nil
}

// GetEventsInput selects events by session or by actor. At least one of
// SessionID and ActorID must be set; when both are set the session scope
// takes precedence.
type GetEventsInput struct {
	SessionID model.SessionID
	ActorID   model.ActorID
	Limit     int
}

func (x *GetEventsInput) Validate() error {
	if x.SessionID == "" && x.ActorID == "" {
		return goerr.New("either session id or actor id is required")
	}
	return nil
}

// GetEvents retrieves events. Session-scoped queries return oldest first
// for replaying a conversation; actor-scoped queries return newest first
// for recalling recent context across sessions. A session id narrows the
// query even when an actor id is also given.
func (u *UseCase) GetEvents(ctx context.Context, input *GetEventsInput) ([]*model.MemoryEvent, error) {
	if err := input.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid event query")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	var (
		events []*model.MemoryEvent
		err    error
	)
	if input.SessionID != "" {
		events, err = u.repo.ListEventsBySession(ctx, input.SessionID, limit)
	} else {
		events, err = u.repo.ListEventsByActor(ctx, input.ActorID, limit)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotProvisioned) {
			logging.From(ctx).Warn("event store not provisioned, returning no events",
				"session_id", input.SessionID, "actor_id", input.ActorID)
			return nil, nil
		}
		return nil, err
	}
	return events, nil
}
