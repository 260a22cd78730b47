package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphaelgruber/sidekick/internal/models"
	"google.golang.org/genai"
)

type geminiBackend struct {
	client *genai.Client
	model  string
}

func newGeminiBackend(ctx context.Context, apiKey, model string) (*geminiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiBackend{client: client, model: model}, nil
}

func (b *geminiBackend) generate(ctx context.Context, msgs []message) (completion, error) {
	system, contents := geminiContents(msgs)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		ResponseMIMEType:  "application/json",
	}

	res, err := b.client.Models.GenerateContent(ctx, b.model, contents, cfg)
	if err != nil {
		return completion{}, err
	}

	text := res.Text()
	if text == "" {
		return completion{}, errors.New("gemini returned empty text")
	}

	out := completion{text: text}
	if u := res.UsageMetadata; u != nil {
		out.usage = models.Usage{
			InputTokens:  int64(u.PromptTokenCount),
			OutputTokens: int64(u.CandidatesTokenCount),
		}
	}
	return out, nil
}

// geminiContents splits off the system prompt, which Gemini takes as a
// separate instruction, and maps the remaining turns onto user/model roles.
func geminiContents(msgs []message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.role {
		case roleSystem:
			system = genai.NewContentFromText(m.content, genai.RoleUser)
		case roleAssistant:
			contents = append(contents, genai.NewContentFromText(m.content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.content, genai.RoleUser))
		}
	}
	return system, contents
}
