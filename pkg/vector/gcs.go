package vector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
)

const objectPrefix = "vectors/"

// CloudStorageStore persists each document as one JSON object under the
// vectors/ prefix. The object body is the self-describing record, so a
// bucket can be inspected or restored without this code.
type CloudStorageStore struct {
	storage adapter.Storage
}

func NewCloudStorageStore(storage adapter.Storage) *CloudStorageStore {
	return &CloudStorageStore{storage: storage}
}

func objectKey(id model.DocumentID) string {
	return objectPrefix + string(id) + ".json"
}

func (s *CloudStorageStore) Put(ctx context.Context, doc *model.VectorDocument) error {
	if doc.ID == "" {
		return goerr.New("document id is empty")
	}

	w, err := s.storage.Put(ctx, objectKey(doc.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to open object writer", goerr.V("document_id", doc.ID))
	}

	if err := json.NewEncoder(w).Encode(doc); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to encode document", goerr.V("document_id", doc.ID))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to write document", goerr.V("document_id", doc.ID))
	}
	return nil
}

func (s *CloudStorageStore) ListAll(ctx context.Context) ([]*model.VectorDocument, error) {
	keys, err := s.storage.List(ctx, objectPrefix)
	if err != nil {
		if errors.Is(err, adapter.ErrNotExist) {
			return nil, goerr.Wrap(ErrNotProvisioned, "bucket does not exist")
		}
		return nil, goerr.Wrap(err, "failed to list documents")
	}

	var docs []*model.VectorDocument
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}

		doc, err := s.getObject(ctx, key)
		if err != nil {
			// Deleted between List and Get
			if errors.Is(err, adapter.ErrNotExist) {
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *CloudStorageStore) getObject(ctx context.Context, key string) (*model.VectorDocument, error) {
	r, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var doc model.VectorDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode document", goerr.V("key", key))
	}
	// Drain so the underlying connection can be reused
	_, _ = io.Copy(io.Discard, r)
	return &doc, nil
}

func (s *CloudStorageStore) Delete(ctx context.Context, id model.DocumentID) error {
	if err := s.storage.Delete(ctx, objectKey(id)); err != nil {
		return goerr.Wrap(err, "failed to delete document", goerr.V("document_id", id))
	}
	return nil
}
