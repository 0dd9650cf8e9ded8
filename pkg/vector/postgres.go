package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	_ "github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/pgvector/pgvector-go"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS vector_documents (
	document_id TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	embedding   vector NOT NULL,
	metadata    JSONB
);
`

// PostgresStore persists documents in PostgreSQL with the pgvector
// extension. Ranking still happens in the application; the extension only
// provides the vector column type here.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL via dsn and prepares the
// schema. The pgvector extension must be installable by the given role.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to prepare postgres schema")
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Put(ctx context.Context, doc *model.VectorDocument) error {
	if doc.ID == "" {
		return goerr.New("document id is empty")
	}

	var metadata any
	if doc.Metadata != nil {
		raw, err := json.Marshal(doc.Metadata)
		if err != nil {
			return goerr.Wrap(err, "failed to encode metadata", goerr.V("document_id", doc.ID))
		}
		metadata = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vector_documents (document_id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		string(doc.ID), doc.Content, pgvector.NewVector(doc.Embedding), metadata,
	)
	if err != nil {
		return postgresErr(err, "failed to save document", goerr.V("document_id", doc.ID))
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*model.VectorDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, content, embedding, metadata FROM vector_documents`)
	if err != nil {
		return nil, postgresErr(err, "failed to list documents")
	}
	defer rows.Close()

	var docs []*model.VectorDocument
	for rows.Next() {
		var (
			doc      model.VectorDocument
			embedded pgvector.Vector
			metadata sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &embedded, &metadata); err != nil {
			return nil, goerr.Wrap(err, "failed to scan document")
		}
		doc.Embedding = embedded.Slice()

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
				return nil, goerr.Wrap(err, "invalid metadata", goerr.V("document_id", doc.ID))
			}
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate documents")
	}
	return docs, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id model.DocumentID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_documents WHERE document_id = $1`, string(id)); err != nil {
		return postgresErr(err, "failed to delete document", goerr.V("document_id", id))
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close postgres connection")
	}
	return nil
}

func postgresErr(err error, msg string, vals ...goerr.Option) error {
	if strings.Contains(err.Error(), "does not exist") {
		return goerr.Wrap(ErrNotProvisioned, msg, vals...)
	}
	return goerr.Wrap(err, msg, vals...)
}
