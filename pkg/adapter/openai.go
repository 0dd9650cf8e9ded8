package adapter

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

type OpenAIOption func(*OpenAIEmbedder)

func WithOpenAIModel(model string) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.model = openai.EmbeddingModel(model)
	}
}

func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrEmbedding, err), "failed to create embeddings")
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, goerr.Wrap(ErrEmbedding, "embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}
