package repository

import (
	"context"
	"sync/atomic"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionSessions = "sessions"
	collectionEvents   = "memory_events"
)

// Firestore implements Repository using Cloud Firestore. Sessions and
// events live in separate top-level collections so that actor-scoped
// event queries can span sessions.
type Firestore struct {
	client *firestore.Client

	// seq breaks ordering ties between events written in the same
	// timestamp within this process.
	seq atomic.Int64
}

type sessionDoc struct {
	SessionID string     `firestore:"session_id"`
	ActorID   string     `firestore:"actor_id"`
	StartTime time.Time  `firestore:"start_time"`
	EndTime   *time.Time `firestore:"end_time,omitempty"`
	Title     string     `firestore:"title"`
	Tags      []string   `firestore:"tags"`
}

type eventDoc struct {
	EventID   string         `firestore:"event_id"`
	ActorID   string         `firestore:"actor_id"`
	SessionID string         `firestore:"session_id"`
	Role      string         `firestore:"role"`
	Content   string         `firestore:"content"`
	Timestamp time.Time      `firestore:"timestamp"`
	Seq       int64          `firestore:"seq"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) PutSession(ctx context.Context, session *model.Session) error {
	if err := session.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	doc := sessionDoc{
		SessionID: string(session.ID),
		ActorID:   string(session.ActorID),
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
		Title:     session.Title,
		Tags:      session.Tags,
	}
	if _, err := r.client.Collection(collectionSessions).Doc(string(session.ID)).Set(ctx, doc); err != nil {
		return firestoreErr(err, "failed to save session", goerr.V("session_id", session.ID))
	}
	return nil
}

func (r *Firestore) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	snap, err := r.client.Collection(collectionSessions).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V("session_id", id))
		}
		return nil, firestoreErr(err, "failed to get session", goerr.V("session_id", id))
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V("session_id", id))
	}
	return doc.toModel(), nil
}

func (r *Firestore) ListSessionsByActor(ctx context.Context, actorID model.ActorID, limit int) ([]*model.Session, error) {
	query := r.client.Collection(collectionSessions).
		Where("actor_id", "==", string(actorID)).
		OrderBy("start_time", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	it := query.Documents(ctx)
	defer it.Stop()

	var sessions []*model.Session
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, firestoreErr(err, "failed to list sessions", goerr.V("actor_id", actorID))
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode session")
		}
		sessions = append(sessions, doc.toModel())
	}
	return sessions, nil
}

func (r *Firestore) PutEvent(ctx context.Context, event *model.MemoryEvent) error {
	if err := event.Validate(); err != nil {
		return goerr.Wrap(err, "invalid event")
	}

	doc := eventDoc{
		EventID:   string(event.ID),
		ActorID:   string(event.ActorID),
		SessionID: string(event.SessionID),
		Role:      string(event.Role),
		Content:   event.Content,
		Timestamp: event.Timestamp,
		Seq:       r.seq.Add(1),
		Metadata:  event.Metadata,
	}
	if _, err := r.client.Collection(collectionEvents).Doc(string(event.ID)).Set(ctx, doc); err != nil {
		return firestoreErr(err, "failed to save event", goerr.V("event_id", event.ID))
	}
	return nil
}

func (r *Firestore) ListEventsBySession(ctx context.Context, sessionID model.SessionID, limit int) ([]*model.MemoryEvent, error) {
	query := r.client.Collection(collectionEvents).
		Where("session_id", "==", string(sessionID)).
		OrderBy("timestamp", firestore.Asc).
		OrderBy("seq", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.collectEvents(ctx, query, goerr.V("session_id", sessionID))
}

func (r *Firestore) ListEventsByActor(ctx context.Context, actorID model.ActorID, limit int) ([]*model.MemoryEvent, error) {
	query := r.client.Collection(collectionEvents).
		Where("actor_id", "==", string(actorID)).
		OrderBy("timestamp", firestore.Desc).
		OrderBy("seq", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.collectEvents(ctx, query, goerr.V("actor_id", actorID))
}

func (r *Firestore) collectEvents(ctx context.Context, query firestore.Query, vals ...goerr.Option) ([]*model.MemoryEvent, error) {
	it := query.Documents(ctx)
	defer it.Stop()

	var events []*model.MemoryEvent
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, firestoreErr(err, "failed to list events", vals...)
		}

		var doc eventDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode event")
		}
		events = append(events, doc.toModel())
	}
	return events, nil
}

func (r *Firestore) DeleteSession(ctx context.Context, id model.SessionID) error {
	it := r.client.Collection(collectionEvents).
		Where("session_id", "==", string(id)).
		Documents(ctx)
	defer it.Stop()

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return firestoreErr(err, "failed to list events for deletion", goerr.V("session_id", id))
		}
		job, err := bw.Delete(snap.Ref)
		if err != nil {
			return goerr.Wrap(err, "failed to queue event deletion", goerr.V("session_id", id))
		}
		jobs = append(jobs, job)
	}
	job, err := bw.Delete(r.client.Collection(collectionSessions).Doc(string(id)))
	if err != nil {
		return goerr.Wrap(err, "failed to queue session deletion", goerr.V("session_id", id))
	}
	jobs = append(jobs, job)

	bw.End()

	// bw.Delete only reports enqueue failures; the RPC outcome arrives
	// through the job results.
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return firestoreErr(err, "failed to delete session data", goerr.V("session_id", id))
		}
	}
	return nil
}

func (r *Firestore) Close() error {
	if err := r.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

func (d *sessionDoc) toModel() *model.Session {
	return &model.Session{
		ID:        model.SessionID(d.SessionID),
		ActorID:   model.ActorID(d.ActorID),
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Title:     d.Title,
		Tags:      d.Tags,
	}
}

func (d *eventDoc) toModel() *model.MemoryEvent {
	return &model.MemoryEvent{
		ID:        model.EventID(d.EventID),
		ActorID:   model.ActorID(d.ActorID),
		SessionID: model.SessionID(d.SessionID),
		Role:      model.Role(d.Role),
		Content:   d.Content,
		Timestamp: d.Timestamp,
		Metadata:  d.Metadata,
	}
}

// firestoreErr maps a missing-database failure to ErrNotProvisioned.
// Document-level NotFound is handled by callers before reaching here.
func firestoreErr(err error, msg string, vals ...goerr.Option) error {
	if status.Code(err) == codes.NotFound {
		return goerr.Wrap(ErrNotProvisioned, msg, vals...)
	}
	return goerr.Wrap(err, msg, vals...)
}
