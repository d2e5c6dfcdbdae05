package config

import (
	"fmt"
	"time"
)

// EmbeddingConfig configures the embedding-model provider and the background
// refresh worker that keeps artifact vectors current.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // gemini, ollama, openai
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	Timeout   string `yaml:"timeout"`

	// Refresh worker knobs
	Workers    int `yaml:"workers"`
	QueueSize  int `yaml:"queue_size"`
	MaxRetries int `yaml:"max_retries"`
}

// ValidEmbeddingProviders lists all supported embedding providers.
var ValidEmbeddingProviders = []string{"gemini", "ollama", "openai"}

// DefaultEmbeddingConfig returns embedding defaults.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:   "gemini",
		Model:      "gemini-embedding-001",
		Dimension:  1536,
		Timeout:    "30s",
		Workers:    2,
		QueueSize:  256,
		MaxRetries: 3,
	}
}

// GetTimeout returns the provider call timeout as a duration.
func (c EmbeddingConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate checks the embedding section.
func (c EmbeddingConfig) Validate() error {
	valid := false
	for _, p := range ValidEmbeddingProviders {
		if c.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Provider, ValidEmbeddingProviders)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Dimension)
	}
	if c.Workers < 1 {
		return fmt.Errorf("embedding workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
