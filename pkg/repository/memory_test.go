package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
)

// newActorID keeps actor-scoped queries isolated even on shared backends.
func newActorID() model.ActorID {
	return model.ActorID("actor-" + uuid.New().String())
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) repository.Repository {
		return repository.NewMemory()
	})
}

// testRepository exercises the Repository contract against any backend.
func testRepository(t *testing.T, newRepo func(t *testing.T) repository.Repository) {
	t.Run("PutAndGetSession", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		session := &model.Session{
			ID:        model.NewSessionID(),
			ActorID:   "actor-1",
			StartTime: time.Now().UTC(),
			Title:     "planning chat",
			Tags:      []string{"work", "planning"},
		}
		gt.NoError(t, repo.PutSession(ctx, session))

		retrieved, err := repo.GetSession(ctx, session.ID)
		gt.NoError(t, err)
		gt.V(t, retrieved).NotNil()
		gt.Equal(t, retrieved.ID, session.ID)
		gt.Equal(t, retrieved.ActorID, session.ActorID)
		gt.Equal(t, retrieved.Title, session.Title)
		gt.Equal(t, retrieved.Tags, session.Tags)
	})

	t.Run("GetSessionNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.GetSession(ctx, model.SessionID("sess-missing"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrSessionNotFound))
	})

	t.Run("ListSessionsByActor", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		actorID := newActorID()

		older := &model.Session{ID: model.NewSessionID(), ActorID: actorID, StartTime: now.Add(-time.Hour)}
		newer := &model.Session{ID: model.NewSessionID(), ActorID: actorID, StartTime: now}
		other := &model.Session{ID: model.NewSessionID(), ActorID: newActorID(), StartTime: now}
		gt.NoError(t, repo.PutSession(ctx, older))
		gt.NoError(t, repo.PutSession(ctx, newer))
		gt.NoError(t, repo.PutSession(ctx, other))

		sessions, err := repo.ListSessionsByActor(ctx, actorID, 0)
		gt.NoError(t, err)
		gt.A(t, sessions).Length(2)
		gt.Equal(t, sessions[0].ID, newer.ID)
		gt.Equal(t, sessions[1].ID, older.ID)
	})

	t.Run("EventsBySessionChronological", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		sessionID := model.NewSessionID()
		now := time.Now().UTC()

		first := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-1", SessionID: sessionID,
			Role: model.RoleUser, Content: "hello", Timestamp: now.Add(-time.Minute),
		}
		second := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-1", SessionID: sessionID,
			Role: model.RoleAssistant, Content: "hi there", Timestamp: now,
		}
		gt.NoError(t, repo.PutEvent(ctx, second))
		gt.NoError(t, repo.PutEvent(ctx, first))

		events, err := repo.ListEventsBySession(ctx, sessionID, 0)
		gt.NoError(t, err)
		gt.A(t, events).Length(2)
		gt.Equal(t, events[0].ID, first.ID)
		gt.Equal(t, events[1].ID, second.ID)
	})

	t.Run("EventsOrderWithinSameSecond", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		sessionID := model.NewSessionID()
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		// Same instant regardless of the wall-clock zone
		first := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-1", SessionID: sessionID,
			Role: model.RoleUser, Content: "at .5",
			Timestamp: base.Add(500 * time.Millisecond).In(time.FixedZone("JST", 9*60*60)),
		}
		second := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-1", SessionID: sessionID,
			Role: model.RoleAssistant, Content: "at .52",
			Timestamp: base.Add(520 * time.Millisecond),
		}
		gt.NoError(t, repo.PutEvent(ctx, first))
		gt.NoError(t, repo.PutEvent(ctx, second))

		events, err := repo.ListEventsBySession(ctx, sessionID, 0)
		gt.NoError(t, err)
		gt.A(t, events).Length(2)
		gt.Equal(t, events[0].ID, first.ID)
		gt.Equal(t, events[1].ID, second.ID)
	})

	t.Run("EventsEqualTimestampKeepInsertionOrder", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		sessionID := model.NewSessionID()
		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		first := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-1", SessionID: sessionID,
			Role: model.RoleUser, Content: "written first", Timestamp: ts,
		}
		second := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-1", SessionID: sessionID,
			Role: model.RoleAssistant, Content: "written second", Timestamp: ts,
		}
		gt.NoError(t, repo.PutEvent(ctx, first))
		gt.NoError(t, repo.PutEvent(ctx, second))

		events, err := repo.ListEventsBySession(ctx, sessionID, 0)
		gt.NoError(t, err)
		gt.A(t, events).Length(2)
		gt.Equal(t, events[0].ID, first.ID)
		gt.Equal(t, events[1].ID, second.ID)
	})

	t.Run("EventsByActorNewestFirst", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		actorID := newActorID()
		s1 := model.NewSessionID()
		s2 := model.NewSessionID()
		old := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: actorID, SessionID: s1,
			Role: model.RoleUser, Content: "yesterday", Timestamp: now.Add(-24 * time.Hour),
		}
		recent := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: actorID, SessionID: s2,
			Role: model.RoleUser, Content: "today", Timestamp: now,
		}
		gt.NoError(t, repo.PutEvent(ctx, old))
		gt.NoError(t, repo.PutEvent(ctx, recent))

		events, err := repo.ListEventsByActor(ctx, actorID, 0)
		gt.NoError(t, err)
		gt.A(t, events).Length(2)
		gt.Equal(t, events[0].ID, recent.ID)
		gt.Equal(t, events[1].ID, old.ID)
	})

	t.Run("EventLimit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		sessionID := model.NewSessionID()
		now := time.Now().UTC()

		for i := 0; i < 5; i++ {
			event := &model.MemoryEvent{
				ID: model.NewEventID(), ActorID: "actor-limit", SessionID: sessionID,
				Role: model.RoleUser, Content: "msg", Timestamp: now.Add(time.Duration(i) * time.Second),
			}
			gt.NoError(t, repo.PutEvent(ctx, event))
		}

		events, err := repo.ListEventsBySession(ctx, sessionID, 3)
		gt.NoError(t, err)
		gt.A(t, events).Length(3)
	})

	t.Run("DeleteSessionCascades", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		sessionID := model.NewSessionID()
		now := time.Now().UTC()

		session := &model.Session{ID: sessionID, ActorID: "actor-del", StartTime: now}
		gt.NoError(t, repo.PutSession(ctx, session))
		event := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-del", SessionID: sessionID,
			Role: model.RoleUser, Content: "to be deleted", Timestamp: now,
		}
		gt.NoError(t, repo.PutEvent(ctx, event))

		gt.NoError(t, repo.DeleteSession(ctx, sessionID))

		_, err := repo.GetSession(ctx, sessionID)
		gt.True(t, errors.Is(err, repository.ErrSessionNotFound))

		events, err := repo.ListEventsBySession(ctx, sessionID, 0)
		gt.NoError(t, err)
		gt.A(t, events).Length(0)

		// Deleting again is a no-op
		gt.NoError(t, repo.DeleteSession(ctx, sessionID))
	})

	t.Run("RejectInvalidEvent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		event := &model.MemoryEvent{
			ID: model.NewEventID(), ActorID: "actor-1", SessionID: model.NewSessionID(),
			Role: model.Role("MODERATOR"), Content: "nope", Timestamp: time.Now(),
		}
		err := repo.PutEvent(ctx, event)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrInvalidRole))
	})
}
