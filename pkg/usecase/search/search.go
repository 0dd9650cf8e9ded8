package search

import (
	"time"

	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/vector"
)

const (
	// DefaultLimit is the number of results returned when a query does
	// not ask for a specific count.
	DefaultLimit = 5

	// DefaultMinScore filters out weak matches. Cosine similarity below
	// this is noise for retrieval purposes.
	DefaultMinScore = 0.7
)

// UseCase provides document indexing and semantic search
type UseCase struct {
	store    vector.Store
	embedder adapter.Embedder
	now      func() time.Time
	newID    func() model.DocumentID
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock sets the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// WithIDGenerator sets the document ID source, mainly for tests
func WithIDGenerator(newID func() model.DocumentID) Option {
	return func(uc *UseCase) {
		uc.newID = newID
	}
}

// New creates a new search UseCase instance
func New(store vector.Store, embedder adapter.Embedder, opts ...Option) *UseCase {
	uc := &UseCase{
		store:    store,
		embedder: embedder,
		now:      time.Now,
		newID:    model.NewDocumentID,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
