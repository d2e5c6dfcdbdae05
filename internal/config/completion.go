package config

import (
	"fmt"
	"time"
)

// CompletionConfig configures the completion-model provider used for
// classification, extraction, and consolidation calls. Every structured call
// requests a JSON-object response; providers that cannot guarantee that are
// not valid here.
type CompletionConfig struct {
	Provider   string `yaml:"provider"` // gemini, anthropic, openai, ollama
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"` // openai-compatible and ollama only
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// ValidCompletionProviders lists all supported completion providers.
var ValidCompletionProviders = []string{"gemini", "anthropic", "openai", "ollama"}

// DefaultCompletionConfig returns completion provider defaults.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		Provider:   "gemini",
		Model:      "gemini-2.0-flash",
		Timeout:    "60s",
		MaxRetries: 3,
	}
}

// GetTimeout returns the provider call timeout as a duration.
func (c CompletionConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Validate checks the completion section.
func (c CompletionConfig) Validate() error {
	valid := false
	for _, p := range ValidCompletionProviders {
		if c.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid completion provider: %s (valid: %v)", c.Provider, ValidCompletionProviders)
	}
	// Ollama is local and keyless; everything else needs a key.
	if c.Provider != "ollama" && c.APIKey == "" {
		return fmt.Errorf("completion API key not configured (set GEMINI_API_KEY, ANTHROPIC_API_KEY, or OPENAI_API_KEY)")
	}
	return nil
}
