package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	actor_id   TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time   TEXT,
	title      TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_sessions_actor ON sessions (actor_id, start_time);

CREATE TABLE IF NOT EXISTS memory_events (
	event_id   TEXT PRIMARY KEY,
	actor_id   TEXT NOT NULL,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	metadata   TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_session ON memory_events (session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_actor ON memory_events (actor_id, timestamp);
`

// sqliteTime is a fixed-width UTC layout. Timestamps are compared as text
// in ORDER BY, so the stored form must sort lexicographically in
// chronological order; RFC3339Nano drops trailing fraction zeros and
// breaks that.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLite is a Repository backed by a local SQLite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if necessary creates) a SQLite database at path
// and prepares the schema. Use ":memory:" for an ephemeral database.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}

	// modernc.org/sqlite does not support concurrent writers on one
	// connection pool; serialize access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to prepare sqlite schema", goerr.V("path", path))
	}

	return &SQLite{db: db}, nil
}

func (r *SQLite) PutSession(ctx context.Context, session *model.Session) error {
	if err := session.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	tags, err := json.Marshal(session.Tags)
	if err != nil {
		return goerr.Wrap(err, "failed to encode tags")
	}

	var endTime any
	if session.EndTime != nil {
		endTime = session.EndTime.UTC().Format(sqliteTime)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, actor_id, start_time, end_time, title, tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			actor_id = excluded.actor_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			title = excluded.title,
			tags = excluded.tags`,
		string(session.ID), string(session.ActorID),
		session.StartTime.UTC().Format(sqliteTime), endTime,
		session.Title, string(tags),
	)
	if err != nil {
		return sqliteErr(err, "failed to save session", goerr.V("session_id", session.ID))
	}
	return nil
}

func (r *SQLite) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, actor_id, start_time, end_time, title, tags
		FROM sessions WHERE session_id = ?`, string(id))

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V("session_id", id))
		}
		return nil, sqliteErr(err, "failed to get session", goerr.V("session_id", id))
	}
	return session, nil
}

func (r *SQLite) ListSessionsByActor(ctx context.Context, actorID model.ActorID, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, actor_id, start_time, end_time, title, tags
		FROM sessions WHERE actor_id = ?
		ORDER BY start_time DESC, rowid DESC LIMIT ?`, string(actorID), limit)
	if err != nil {
		return nil, sqliteErr(err, "failed to list sessions", goerr.V("actor_id", actorID))
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate sessions")
	}
	return sessions, nil
}

func (r *SQLite) PutEvent(ctx context.Context, event *model.MemoryEvent) error {
	if err := event.Validate(); err != nil {
		return goerr.Wrap(err, "invalid event")
	}

	metadata, err := encodeMetadata(event.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO memory_events (event_id, actor_id, session_id, role, content, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(event.ID), string(event.ActorID), string(event.SessionID),
		string(event.Role), event.Content,
		event.Timestamp.UTC().Format(sqliteTime), metadata,
	)
	if err != nil {
		return sqliteErr(err, "failed to save event", goerr.V("event_id", event.ID))
	}
	return nil
}

func (r *SQLite) ListEventsBySession(ctx context.Context, sessionID model.SessionID, limit int) ([]*model.MemoryEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, actor_id, session_id, role, content, timestamp, metadata
		FROM memory_events WHERE session_id = ?
		ORDER BY timestamp ASC, rowid ASC LIMIT ?`, string(sessionID), limit)
	if err != nil {
		return nil, sqliteErr(err, "failed to list events", goerr.V("session_id", sessionID))
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *SQLite) ListEventsByActor(ctx context.Context, actorID model.ActorID, limit int) ([]*model.MemoryEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, actor_id, session_id, role, content, timestamp, metadata
		FROM memory_events WHERE actor_id = ?
		ORDER BY timestamp DESC, rowid DESC LIMIT ?`, string(actorID), limit)
	if err != nil {
		return nil, sqliteErr(err, "failed to list events", goerr.V("actor_id", actorID))
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *SQLite) DeleteSession(ctx context.Context, id model.SessionID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return sqliteErr(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_events WHERE session_id = ?`, string(id)); err != nil {
		return sqliteErr(err, "failed to delete events", goerr.V("session_id", id))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, string(id)); err != nil {
		return sqliteErr(err, "failed to delete session", goerr.V("session_id", id))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit deletion", goerr.V("session_id", id))
	}
	return nil
}

func (r *SQLite) Close() error {
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		session model.Session
		start   string
		end     sql.NullString
		tags    string
	)
	if err := row.Scan(&session.ID, &session.ActorID, &start, &end, &session.Title, &tags); err != nil {
		return nil, err
	}

	startTime, err := time.Parse(sqliteTime, start)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid start time", goerr.V("session_id", session.ID))
	}
	session.StartTime = startTime

	if end.Valid {
		endTime, err := time.Parse(sqliteTime, end.String)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid end time", goerr.V("session_id", session.ID))
		}
		session.EndTime = &endTime
	}

	if err := json.Unmarshal([]byte(tags), &session.Tags); err != nil {
		return nil, goerr.Wrap(err, "invalid tags", goerr.V("session_id", session.ID))
	}
	return &session, nil
}

func collectEvents(rows *sql.Rows) ([]*model.MemoryEvent, error) {
	var events []*model.MemoryEvent
	for rows.Next() {
		var (
			event    model.MemoryEvent
			ts       string
			metadata sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.ActorID, &event.SessionID, &event.Role, &event.Content, &ts, &metadata); err != nil {
			return nil, goerr.Wrap(err, "failed to scan event")
		}

		timestamp, err := time.Parse(sqliteTime, ts)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid timestamp", goerr.V("event_id", event.ID))
		}
		event.Timestamp = timestamp

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
				return nil, goerr.Wrap(err, "invalid metadata", goerr.V("event_id", event.ID))
			}
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate events")
	}
	return events, nil
}

func encodeMetadata(metadata map[string]any) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode metadata")
	}
	return string(raw), nil
}

// sqliteErr maps a missing-table failure to ErrNotProvisioned and wraps
// everything else as-is.
func sqliteErr(err error, msg string, vals ...goerr.Option) error {
	if strings.Contains(err.Error(), "no such table") {
		return goerr.Wrap(ErrNotProvisioned, msg, vals...)
	}
	return goerr.Wrap(err, msg, vals...)
}
