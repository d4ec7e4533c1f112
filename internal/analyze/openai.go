package analyze

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/syllabai/syllabai/internal/config"
)

type OpenAI struct {
	client *openai.Client
	model  string
	cfg    config.AIConfig
	logger zerolog.Logger
}

func NewOpenAI(cfg config.AIConfig, logger zerolog.Logger) *OpenAI {
	return NewOpenAIWithClient(openai.NewClient(cfg.OpenAIAPIKey), cfg, logger)
}

func NewOpenAIWithClient(client *openai.Client, cfg config.AIConfig, logger zerolog.Logger) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: client, model: model, cfg: cfg, logger: logger}
}

func (o *OpenAI) Analyze(ctx context.Context, text string) (*Analysis, error) {
	return complete(ctx, o.cfg.Timeout, o.logger, func(ctx context.Context) (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.model,
			Temperature: 0.2,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
		})
		if err != nil {
			return "", fmt.Errorf("openai: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})
}
