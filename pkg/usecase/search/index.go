package search

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// IndexInput describes a document to index. ID is optional; a new one is
// generated when empty, and indexing an existing ID overwrites it.
type IndexInput struct {
	ID       model.DocumentID
	Content  string
	Metadata map[string]any
}

// Index embeds the content and stores the document. Nothing is persisted
// when embedding fails, so the store never holds a document without a
// vector.
func (u *UseCase) Index(ctx context.Context, input *IndexInput) (*model.VectorDocument, error) {
	if input.Content == "" {
		return nil, goerr.New("content is required")
	}

	embedding, err := u.embedder.Embed(ctx, input.Content)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content")
	}

	id := input.ID
	if id == "" {
		id = u.newID()
	}

	metadata := make(map[string]any, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	metadata["indexedAt"] = u.now().UTC().Format(time.RFC3339Nano)

	doc := &model.VectorDocument{
		ID:        id,
		Content:   input.Content,
		Embedding: embedding,
		Metadata:  metadata,
	}

	if err := u.store.Put(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to store document", goerr.V("document_id", doc.ID))
	}

	return doc, nil
}

// Delete removes an indexed document. Deleting an unknown ID succeeds.
func (u *UseCase) Delete(ctx context.Context, id model.DocumentID) error {
	if id == "" {
		return goerr.New("document id is required")
	}
	return u.store.Delete(ctx, id)
}
