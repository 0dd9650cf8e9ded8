package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// Memory is an in-memory Repository for tests and local mode. It keeps
// events in insertion order so that equal timestamps stay stable.
type Memory struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*model.Session
	events   []*model.MemoryEvent
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[model.SessionID]*model.Session),
	}
}

func (r *Memory) PutSession(_ context.Context, session *model.Session) error {
	if err := session.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := *session
	if session.Tags != nil {
		s.Tags = append([]string{}, session.Tags...)
	}
	r.sessions[session.ID] = &s
	return nil
}

func (r *Memory) GetSession(_ context.Context, id model.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V("session_id", id))
	}

	s := *session
	if session.Tags != nil {
		s.Tags = append([]string{}, session.Tags...)
	}
	return &s, nil
}

func (r *Memory) ListSessionsByActor(_ context.Context, actorID model.ActorID, limit int) ([]*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*model.Session
	for _, session := range r.sessions {
		if session.ActorID != actorID {
			continue
		}
		s := *session
		if session.Tags != nil {
			s.Tags = append([]string{}, session.Tags...)
		}
		sessions = append(sessions, &s)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (r *Memory) PutEvent(_ context.Context, event *model.MemoryEvent) error {
	if err := event.Validate(); err != nil {
		return goerr.Wrap(err, "invalid event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, cloneEvent(event))
	return nil
}

func (r *Memory) ListEventsBySession(_ context.Context, sessionID model.SessionID, limit int) ([]*model.MemoryEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []*model.MemoryEvent
	for _, event := range r.events {
		if event.SessionID == sessionID {
			events = append(events, cloneEvent(event))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *Memory) ListEventsByActor(_ context.Context, actorID model.ActorID, limit int) ([]*model.MemoryEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []*model.MemoryEvent
	for _, event := range r.events {
		if event.ActorID == actorID {
			events = append(events, cloneEvent(event))
		}
	}

	// Newest first. Stable sort keeps insertion order among equal timestamps.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *Memory) DeleteSession(_ context.Context, id model.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)

	kept := r.events[:0]
	for _, event := range r.events {
		if event.SessionID != id {
			kept = append(kept, event)
		}
	}
	r.events = kept
	return nil
}

func (r *Memory) Close() error {
	return nil
}

func cloneEvent(event *model.MemoryEvent) *model.MemoryEvent {
	e := *event
	if event.Metadata != nil {
		e.Metadata = make(map[string]any, len(event.Metadata))
		for k, v := range event.Metadata {
			e.Metadata[k] = v
		}
	}
	return &e
}
