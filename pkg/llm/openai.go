package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider is the one concrete Provider wired against a real
// completion API. It asks for a numbered JSON array back and hands
// the raw text to ParseTranslationResponse.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIProvider builds a provider bound to model, using apiKey for
// auth. timeout bounds each chunk's completion call.
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

func (p *OpenAIProvider) Translate(ctx context.Context, chunk []string, sourceLang, targetLang string) ([]string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	numbered := make([]map[string]any, len(chunk))
	for i, text := range chunk {
		numbered[i] = map[string]any{"id": i + 1, "text": text}
	}
	inputJSON, err := json.Marshal(numbered)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal chunk: %w", err)
	}

	prompt := fmt.Sprintf(
		"Translate each \"text\" field from %s to %s. Preserve the numbering "+
			"exactly. Respond with only a JSON array of the form "+
			"[{\"id\":i,\"text\":\"...\"}, ...], no commentary.\n\n%s",
		sourceLang, targetLang, string(inputJSON),
	)

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: completion request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("llm: completion returned no choices")
	}

	return ParseTranslationResponse(completion.Choices[0].Message.Content, len(chunk))
}
