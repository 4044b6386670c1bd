package ai

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator generates text from a system prompt and user prompt.
// All providers (OpenAI-compatible, Gemini, Ollama) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config selects and parameterizes a text-generation provider.
type Config struct {
	Provider string // "openai" | "gemini" | "ollama"
	BaseURL  string
	APIKey   string
	Model    string
}

// NewTextGenerator builds the configured provider. It returns nil with no
// error when Provider is empty: AI-backed endpoints then fail their requests
// individually instead of taking the process down at startup.
func NewTextGenerator(cfg Config) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "":
		return nil, nil
	case "openai":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("openai provider requires a base URL")
		}
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "gemini":
		client, err := NewGeminiClient(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client, cfg.Model), nil
	case "ollama":
		client := NewOllamaClient(cfg.BaseURL)
		return NewOllamaGenerator(client, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
