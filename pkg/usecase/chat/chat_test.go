package chat_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/usecase/chat"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/m-mizutani/kioku/pkg/vector"
)

// stubGenerator echoes a canned reply and keeps the prompt it saw.
type stubGenerator struct {
	prompt string
	reply  string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, nil
}

func newChat(gen adapter.Generator) (*chat.UseCase, *memory.UseCase, *search.UseCase) {
	memoryUC := memory.New(repository.NewMemory())
	searchUC := search.New(vector.NewMemoryStore(), adapter.NewHashEmbedder(0))
	return chat.New(memoryUC, searchUC, gen), memoryUC, searchUC
}

func TestSendRecordsBothTurns(t *testing.T) {
	gen := &stubGenerator{reply: "hello to you"}
	uc, memoryUC, _ := newChat(gen)
	ctx := context.Background()

	sessionID := model.NewSessionID()
	reply, err := uc.Send(ctx, &chat.SendInput{
		SessionID: sessionID,
		ActorID:   "actor-1",
		Message:   "hello",
	})
	gt.NoError(t, err)
	gt.Equal(t, reply.Role, model.RoleAssistant)
	gt.Equal(t, reply.Content, "hello to you")

	events, err := memoryUC.GetEvents(ctx, &memory.GetEventsInput{SessionID: sessionID})
	gt.NoError(t, err)
	gt.A(t, events).Length(2)
	gt.Equal(t, events[0].Role, model.RoleUser)
	gt.Equal(t, events[0].Content, "hello")
	gt.Equal(t, events[1].Role, model.RoleAssistant)
}

func TestSendIncludesRetrievedNotes(t *testing.T) {
	gen := &stubGenerator{reply: "noted"}
	uc, _, searchUC := newChat(gen)
	ctx := context.Background()

	_, err := searchUC.Index(ctx, &search.IndexInput{Content: "the cat sat on the mat"})
	gt.NoError(t, err)

	_, err = uc.Send(ctx, &chat.SendInput{
		SessionID: model.NewSessionID(),
		ActorID:   "actor-1",
		Message:   "the cat sat on the mat",
	})
	gt.NoError(t, err)
	gt.True(t, strings.Contains(gen.prompt, "the cat sat on the mat"))
	gt.True(t, strings.Contains(gen.prompt, "Reference notes"))
}

func TestSendCarriesHistory(t *testing.T) {
	gen := &stubGenerator{reply: "sure"}
	uc, _, _ := newChat(gen)
	ctx := context.Background()

	sessionID := model.NewSessionID()
	_, err := uc.Send(ctx, &chat.SendInput{
		SessionID: sessionID, ActorID: "actor-1", Message: "my name is Aki",
	})
	gt.NoError(t, err)

	_, err = uc.Send(ctx, &chat.SendInput{
		SessionID: sessionID, ActorID: "actor-1", Message: "what is my name?",
	})
	gt.NoError(t, err)
	gt.True(t, strings.Contains(gen.prompt, "my name is Aki"))
}

func TestSendRequiresMessage(t *testing.T) {
	uc, _, _ := newChat(&stubGenerator{})

	_, err := uc.Send(context.Background(), &chat.SendInput{
		SessionID: model.NewSessionID(),
		ActorID:   "actor-1",
	})
	gt.Error(t, err)
}
