package adapter_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	e := adapter.NewHashEmbedder(0)

	v1, err := e.Embed(ctx, "the cat sat on the mat")
	gt.NoError(t, err)
	v2, err := e.Embed(ctx, "the cat sat on the mat")
	gt.NoError(t, err)

	gt.A(t, v1).Length(256)
	gt.Equal(t, v1, v2)
}

func TestHashEmbedderEmptyText(t *testing.T) {
	ctx := context.Background()
	e := adapter.NewHashEmbedder(64)

	vec, err := e.Embed(ctx, "")
	gt.NoError(t, err)

	gt.A(t, vec).Length(64)
	for _, v := range vec {
		gt.Equal(t, v, 0)
	}
}

func TestHashEmbedderFixedDimension(t *testing.T) {
	ctx := context.Background()
	e := adapter.NewHashEmbedder(128)

	short, err := e.Embed(ctx, "hi")
	gt.NoError(t, err)
	long, err := e.Embed(ctx, "a considerably longer piece of text with many more tokens in it")
	gt.NoError(t, err)

	gt.A(t, short).Length(128)
	gt.A(t, long).Length(128)
}
