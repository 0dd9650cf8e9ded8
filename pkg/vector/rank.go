package vector

import (
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// ErrDimensionMismatch indicates a query vector whose dimensionality
// differs from a stored document. The corpus is inconsistent with the
// query; ranking aborts rather than silently skipping documents.
var ErrDimensionMismatch = goerr.New("embedding dimension mismatch")

// Cosine returns the cosine similarity of two vectors in [-1, 1]. A zero
// vector has no direction, so similarity against it is 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, goerr.Wrap(ErrDimensionMismatch, "vector lengths differ",
			goerr.V("len_a", len(a)), goerr.V("len_b", len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Rank scores every document against the query embedding, drops those
// below minScore, and returns at most k results ordered by descending
// similarity. Equal scores keep the input order. Any document with a
// different dimensionality fails the whole ranking.
func Rank(query []float32, docs []*model.VectorDocument, k int, minScore float64) ([]*model.ScoredDocument, error) {
	if k <= 0 {
		return nil, goerr.New("k must be positive", goerr.V("k", k))
	}

	var scored []*model.ScoredDocument
	for _, doc := range docs {
		score, err := Cosine(query, doc.Embedding)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to score document", goerr.V("document_id", doc.ID))
		}
		if score < minScore {
			continue
		}
		scored = append(scored, &model.ScoredDocument{Document: doc, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
