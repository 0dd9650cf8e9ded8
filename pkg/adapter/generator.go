package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Generator produces a free-form text reply for a prompt. It backs the
// chat usecase; which model answers is a deployment choice.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator adapts the Gemini API to the Generator interface.
type GeminiGenerator struct {
	gemini Gemini
}

func NewGeminiGenerator(gemini Gemini) *GeminiGenerator {
	return &GeminiGenerator{gemini: gemini}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.gemini.GenerateContent(ctx, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, &genai.GenerateContentConfig{})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate reply")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("model returned empty reply")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// ClaudeGenerator adapts the Claude API to the Generator interface.
type ClaudeGenerator struct {
	claude Claude
}

func NewClaudeGenerator(claude Claude) *ClaudeGenerator {
	return &ClaudeGenerator{claude: claude}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.claude.Chat(ctx, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate reply")
	}

	var sb strings.Builder
	for _, content := range resp.Content {
		if content.Type == "text" {
			sb.WriteString(content.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", goerr.New("model returned empty reply")
	}
	return sb.String(), nil
}
