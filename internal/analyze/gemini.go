package analyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/syllabai/syllabai/internal/config"
)

const defaultGeminiModel = "gemini-1.5-flash"

type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	cfg    config.AIConfig
	logger zerolog.Logger
}

func NewGemini(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Gemini, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	return &Gemini{client: client, model: model, cfg: cfg, logger: logger}, nil
}

func (g *Gemini) Analyze(ctx context.Context, text string) (*Analysis, error) {
	return complete(ctx, g.cfg.Timeout, g.logger, func(ctx context.Context) (string, error) {
		resp, err := g.model.GenerateContent(ctx, genai.Text(text))
		if err != nil {
			return "", fmt.Errorf("gemini: %w", err)
		}
		return responseText(resp), nil
	})
}

func (g *Gemini) Close() {
	_ = g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		// Only the first candidate with content is used.
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
