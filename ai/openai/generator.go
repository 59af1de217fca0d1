package openai

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/lethanhson9903/rag-assistant-api-core/ai"
	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client   llms.Model
	settings *core.LLMSettings
	logger   *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(settings *core.LLMSettings) (*Generator, error) {
	if settings == nil {
		return nil, ai.ErrLLMSettingsRequired
	}
	if err := core.ValidateLLMSettings(settings); err != nil {
		return nil, err
	}

	token := settings.ApiKey
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(settings.ModelName),
	}
	if settings.ApiBase != "" {
		opts = append(opts, openai.WithBaseURL(settings.ApiBase))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:   client,
		settings: settings,
		logger:   slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided settings row.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(settings *core.LLMSettings) (ai.Generator, error) {
	return newGenerator(settings)
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case core.RoleSystem:
		return llms.ChatMessageTypeSystem
	case core.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// Generate invokes the chat model with the prompt messages.
// Raw provider failures are classified into the generator error taxonomy.
func (g *Generator) Generate(ctx context.Context, messages []core.PromptMessage) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatMessageType(msg.Role),
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}

	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(g.settings.Temperature),
		llms.WithMaxTokens(g.settings.MaxTokens),
		llms.WithTopP(g.settings.TopP),
	)
	if err != nil {
		g.logger.Error("generation failed", "model", g.settings.ModelName, "err", err)
		return "", ai.ClassifyGeneratorError(err)
	}
	if len(response.Choices) == 0 {
		g.logger.Warn("no choices returned from model", "model", g.settings.ModelName)
		return "", nil
	}
	return response.Choices[0].Content, nil
}
