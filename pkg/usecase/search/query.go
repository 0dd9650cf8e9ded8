package search

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"github.com/m-mizutani/kioku/pkg/vector"
)

// QueryInput describes a semantic search. Limit falls back to
// DefaultLimit when zero or negative. MinScore is a pointer because 0 is
// a meaningful threshold; nil falls back to DefaultMinScore.
type QueryInput struct {
	Query    string
	Limit    int
	MinScore *float64
}

// SearchScored embeds the query and ranks the whole corpus against it.
// A store that is not provisioned yields no results rather than an error.
func (u *UseCase) SearchScored(ctx context.Context, input *QueryInput) ([]*model.ScoredDocument, error) {
	if input.Query == "" {
		return nil, goerr.New("query is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	minScore := DefaultMinScore
	if input.MinScore != nil {
		minScore = *input.MinScore
	}

	embedding, err := u.embedder.Embed(ctx, input.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	docs, err := u.store.ListAll(ctx)
	if err != nil {
		if errors.Is(err, vector.ErrNotProvisioned) {
			logging.From(ctx).Warn("vector store not provisioned, returning no results")
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to load documents")
	}

	ranked, err := vector.Rank(embedding, docs, limit, minScore)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to rank documents")
	}
	return ranked, nil
}

// Search runs SearchScored and strips the scores, for callers that only
// need the matching documents.
func (u *UseCase) Search(ctx context.Context, input *QueryInput) ([]*model.VectorDocument, error) {
	ranked, err := u.SearchScored(ctx, input)
	if err != nil {
		return nil, err
	}

	docs := make([]*model.VectorDocument, 0, len(ranked))
	for _, r := range ranked {
		docs = append(docs, r.Document)
	}
	return docs, nil
}
