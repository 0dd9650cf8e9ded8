package vector

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// ErrNotProvisioned indicates that the backing store for vectors is
// absent (missing bucket or table). Callers may treat reads as empty.
var ErrNotProvisioned = goerr.New("vector store is not provisioned")

// Store holds indexed documents with their embeddings. Ranking happens
// outside the store: implementations only persist and enumerate, so every
// backend behaves identically under the brute-force scan.
type Store interface {
	// Put saves a document, overwriting any document with the same ID
	Put(ctx context.Context, doc *model.VectorDocument) error

	// ListAll returns every stored document
	ListAll(ctx context.Context) ([]*model.VectorDocument, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id model.DocumentID) error
}
