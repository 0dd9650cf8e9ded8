package chat

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/usecase/search"
)

// historyLimit bounds how many past turns go into the prompt.
const historyLimit = 20

// UseCase ties conversation memory and semantic search into a
// retrieval-augmented chat: every turn is recorded as events, and indexed
// documents similar to the user message are offered to the model as
// context.
type UseCase struct {
	memory    *memory.UseCase
	search    *search.UseCase
	generator adapter.Generator
}

// New creates a new chat UseCase instance
func New(memoryUC *memory.UseCase, searchUC *search.UseCase, generator adapter.Generator) *UseCase {
	return &UseCase{
		memory:    memoryUC,
		search:    searchUC,
		generator: generator,
	}
}

// SendInput is one user message within a session.
type SendInput struct {
	SessionID model.SessionID
	ActorID   model.ActorID
	Message   string
}

// Send records the user message, builds a prompt from session history and
// retrieved documents, and records and returns the assistant reply.
func (u *UseCase) Send(ctx context.Context, input *SendInput) (*model.MemoryEvent, error) {
	if input.Message == "" {
		return nil, goerr.New("message is required")
	}

	if _, err := u.memory.CreateEvent(ctx, &memory.CreateEventInput{
		SessionID: input.SessionID,
		ActorID:   input.ActorID,
		Role:      model.RoleUser,
		Content:   input.Message,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to record user message")
	}

	history, err := u.memory.GetEvents(ctx, &memory.GetEventsInput{
		SessionID: input.SessionID,
		Limit:     historyLimit,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load session history")
	}

	docs, err := u.search.SearchScored(ctx, &search.QueryInput{Query: input.Message})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to retrieve context documents")
	}

	reply, err := u.generator.Generate(ctx, buildPrompt(history, docs))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate reply")
	}

	event, err := u.memory.CreateEvent(ctx, &memory.CreateEventInput{
		SessionID: input.SessionID,
		ActorID:   input.ActorID,
		Role:      model.RoleAssistant,
		Content:   reply,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to record assistant reply")
	}

	return event, nil
}

// buildPrompt renders the retrieved notes and the session history. The
// user message just recorded is the last history entry, so it is not
// repeated separately.
func buildPrompt(history []*model.MemoryEvent, docs []*model.ScoredDocument) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant with access to the conversation so far and retrieved reference notes.\n")

	if len(docs) > 0 {
		sb.WriteString("\n# Reference notes\n")
		for _, d := range docs {
			sb.WriteString("- ")
			sb.WriteString(d.Document.Content)
			sb.WriteString("\n")
		}
	}

	if len(history) > 0 {
		sb.WriteString("\n# Conversation\n")
		for _, e := range history {
			sb.WriteString(string(e.Role))
			sb.WriteString(": ")
			sb.WriteString(e.Content)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nReply to the last USER message.\n")
	return sb.String()
}
