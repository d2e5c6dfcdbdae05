// Package config holds all forge engine configuration. One file per concern;
// every section has a Default*Config constructor so a missing config file
// still yields a runnable engine. Provider API keys set in the environment
// override whatever the file carries.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all forge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Engine data directory and database
	Engine EngineConfig `yaml:"engine"`

	// Completion-model provider
	Completion CompletionConfig `yaml:"completion"`

	// Embedding-model provider and refresh worker
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval shaping
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Safety filter policy
	Safety SafetyConfig `yaml:"safety"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig locates the engine's on-disk state.
type EngineConfig struct {
	// DataDir is the root for the database, logs, and policy files.
	DataDir string `yaml:"data_dir"`

	// DatabaseFile is the SQLite file name inside DataDir.
	DatabaseFile string `yaml:"database_file"`

	// SweepInterval is how often the background TTL sweep runs when the
	// engine owns a ticker. The sweep can also be run manually.
	SweepInterval string `yaml:"sweep_interval"`
}

// DefaultEngineConfig returns engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DataDir:       ".forge",
		DatabaseFile:  "forge.db",
		SweepInterval: "1h",
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:       "forge",
		Version:    "1.0.0",
		Engine:     DefaultEngineConfig(),
		Completion: DefaultCompletionConfig(),
		Embedding:  DefaultEmbeddingConfig(),
		Retrieval:  DefaultRetrievalConfig(),
		Safety:     DefaultSafetyConfig(),
		Logging:    DefaultLoggingConfig(),
	}
}

// Load loads configuration from a YAML file. A missing file returns
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Completion provider keys, in priority order: explicit provider config
	// wins only when its key is present.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Completion.APIKey = key
		if c.Completion.Provider == "" {
			c.Completion.Provider = "gemini"
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.Completion.Provider == "anthropic" {
		c.Completion.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Completion.Provider == "openai" {
		c.Completion.APIKey = key
	}

	// Embedding provider key falls back to the completion key for gemini.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Embedding.Provider == "gemini" {
		c.Embedding.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = key
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		c.Embedding.BaseURL = url
	}

	// Engine paths
	if dir := os.Getenv("FORGE_DATA_DIR"); dir != "" {
		c.Engine.DataDir = dir
	}
	if db := os.Getenv("FORGE_DB"); db != "" {
		c.Engine.DatabaseFile = db
	}
}

// DatabasePath returns the full path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Engine.DataDir, c.Engine.DatabaseFile)
}

// ConfigPath returns the full path to the config file inside DataDir.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Engine.DataDir, "config.yaml")
}

// GetSweepInterval returns the TTL sweep interval as a duration.
func (c *Config) GetSweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Engine.SweepInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Completion.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if c.Engine.DataDir == "" {
		return fmt.Errorf("engine data_dir not configured")
	}
	return nil
}
