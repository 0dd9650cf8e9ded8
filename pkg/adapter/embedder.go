package adapter

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ErrEmbedding marks failures of an embedding backend so that callers can
// tell them apart from storage trouble.
var ErrEmbedding = goerr.New("embedding failed")

// Embedder produces a fixed-length vector representation of text. All
// vectors from one Embedder instance have the same dimensionality. Empty
// text is accepted and yields a defined embedding, not an error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder adapts the Gemini API to the Embedder interface.
type GeminiEmbedder struct {
	gemini Gemini
}

func NewGeminiEmbedder(gemini Gemini) *GeminiEmbedder {
	return &GeminiEmbedder{gemini: gemini}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.gemini.Embedding(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrEmbedding, err), "failed to generate embedding")
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.Wrap(ErrEmbedding, "embedding response is empty")
	}
	return resp.Embeddings[0].Values, nil
}

// defaultHashDimension keeps local vectors small; the value only needs to be
// large enough that distinct tokens rarely share a bucket.
const defaultHashDimension = 256

// HashEmbedder is a deterministic offline embedder: each token is hashed
// into a fixed number of buckets and counted. The result carries no
// semantics beyond lexical overlap, which is enough for local mode and
// tests. Empty text returns the zero vector.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%e.dim]++
	}
	return vec, nil
}
