// Package llm wraps the completion-model providers behind a two-method
// client interface. Every structured call in the engine (classification,
// extraction, consolidation) goes through here and expects a JSON-object
// response; providers are configured to request that response shape
// explicitly.
package llm

import (
	"context"
	"fmt"

	"forge/internal/config"
)

// Client defines the interface for completion-model providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewClient builds a provider client from the completion config.
func NewClient(cfg config.CompletionConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(cfg)
	case "anthropic":
		return NewAnthropicClient(cfg)
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "ollama":
		return NewOllamaClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}
