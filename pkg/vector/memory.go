package vector

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// MemoryStore is an in-memory Store for tests and local mode.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[model.DocumentID]*model.VectorDocument
	order []model.DocumentID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[model.DocumentID]*model.VectorDocument),
	}
}

func (s *MemoryStore) Put(_ context.Context, doc *model.VectorDocument) error {
	if doc.ID == "" {
		return goerr.New("document id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; !ok {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]*model.VectorDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*model.VectorDocument, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.docs[id].Clone())
	}
	return docs, nil
}

func (s *MemoryStore) Delete(_ context.Context, id model.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return nil
	}
	delete(s.docs, id)
	for i, docID := range s.order {
		if docID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
