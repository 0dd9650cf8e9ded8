package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type DocumentID string

// NewDocumentID generates a new unique DocumentID. It combines a clock
// component with a random suffix so that ids generated in the same
// nanosecond still do not collide.
func NewDocumentID() DocumentID {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return DocumentID(fmt.Sprintf("doc-%d-%s", time.Now().UnixNano(), hex.EncodeToString(suffix)))
}

// VectorDocument is an indexed text document with its embedding. Documents
// are immutable after creation; re-indexing the same id overwrites the
// stored record. The JSON shape is the persisted self-describing record.
type VectorDocument struct {
	ID        DocumentID     `json:"id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"vector"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy so that stored documents cannot be mutated
// through a reference held by the caller.
func (d *VectorDocument) Clone() *VectorDocument {
	if d == nil {
		return nil
	}
	doc := &VectorDocument{
		ID:      d.ID,
		Content: d.Content,
	}
	if d.Embedding != nil {
		doc.Embedding = make([]float32, len(d.Embedding))
		copy(doc.Embedding, d.Embedding)
	}
	if d.Metadata != nil {
		doc.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			doc.Metadata[k] = v
		}
	}
	return doc
}

// ScoredDocument pairs a document with its similarity score against a query.
type ScoredDocument struct {
	Document *VectorDocument
	Score    float64
}
