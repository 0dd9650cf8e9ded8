package search_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/m-mizutani/kioku/pkg/vector"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, goerr.New("embedding backend down")
}

func newUseCase() (*search.UseCase, *vector.MemoryStore) {
	store := vector.NewMemoryStore()
	return search.New(store, adapter.NewHashEmbedder(0)), store
}

func TestIndexAndSearchSelf(t *testing.T) {
	uc, _ := newUseCase()
	ctx := context.Background()

	doc, err := uc.Index(ctx, &search.IndexInput{Content: "the cat sat on the mat"})
	gt.NoError(t, err)
	gt.NotEqual(t, doc.ID, model.DocumentID(""))
	gt.A(t, doc.Embedding).Longer(0)
	gt.V(t, doc.Metadata["indexedAt"]).NotNil()

	// A document is its own best match
	results, err := uc.SearchScored(ctx, &search.QueryInput{Query: "the cat sat on the mat"})
	gt.NoError(t, err)
	gt.A(t, results).Longer(0)
	gt.Equal(t, results[0].Document.ID, doc.ID)
	gt.True(t, results[0].Score > 0.99)
}

func TestSearchRelated(t *testing.T) {
	uc, _ := newUseCase()
	ctx := context.Background()

	matching, err := uc.Index(ctx, &search.IndexInput{Content: "the cat sat on the mat"})
	gt.NoError(t, err)
	_, err = uc.Index(ctx, &search.IndexInput{Content: "stock markets rallied sharply today"})
	gt.NoError(t, err)

	minScore := 0.5
	results, err := uc.SearchScored(ctx, &search.QueryInput{
		Query:    "a cat on a mat",
		MinScore: &minScore,
	})
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].Document.ID, matching.ID)
}

func TestIndexRejectsEmptyContent(t *testing.T) {
	uc, _ := newUseCase()

	_, err := uc.Index(context.Background(), &search.IndexInput{})
	gt.Error(t, err)
}

func TestIndexOverwritesSameID(t *testing.T) {
	uc, store := newUseCase()
	ctx := context.Background()

	id := model.DocumentID("doc-fixed")
	_, err := uc.Index(ctx, &search.IndexInput{ID: id, Content: "first version"})
	gt.NoError(t, err)
	_, err = uc.Index(ctx, &search.IndexInput{ID: id, Content: "second version"})
	gt.NoError(t, err)

	docs, err := store.ListAll(ctx)
	gt.NoError(t, err)
	gt.A(t, docs).Length(1)
	gt.Equal(t, docs[0].Content, "second version")
}

func TestIndexDoesNotPersistOnEmbedFailure(t *testing.T) {
	store := vector.NewMemoryStore()
	uc := search.New(store, failingEmbedder{})
	ctx := context.Background()

	_, err := uc.Index(ctx, &search.IndexInput{Content: "never stored"})
	gt.Error(t, err)

	docs, err := store.ListAll(ctx)
	gt.NoError(t, err)
	gt.A(t, docs).Length(0)
}

func TestSearchEmptyCorpus(t *testing.T) {
	uc, _ := newUseCase()

	results, err := uc.Search(context.Background(), &search.QueryInput{Query: "anything"})
	gt.NoError(t, err)
	gt.A(t, results).Length(0)
}

func TestSearchRequiresQuery(t *testing.T) {
	uc, _ := newUseCase()

	_, err := uc.Search(context.Background(), &search.QueryInput{})
	gt.Error(t, err)
}

func TestSearchLimit(t *testing.T) {
	uc, _ := newUseCase()
	ctx := context.Background()

	for i := 0; i < search.DefaultLimit+3; i++ {
		_, err := uc.Index(ctx, &search.IndexInput{Content: "the cat sat on the mat"})
		gt.NoError(t, err)
	}

	minScore := 0.0
	results, err := uc.Search(ctx, &search.QueryInput{
		Query:    "the cat sat on the mat",
		MinScore: &minScore,
	})
	gt.NoError(t, err)
	gt.A(t, results).Length(search.DefaultLimit)

	results, err = uc.Search(ctx, &search.QueryInput{
		Query:    "the cat sat on the mat",
		Limit:    2,
		MinScore: &minScore,
	})
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
}
