package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "forge" {
		t.Errorf("Expected name forge, got %s", cfg.Name)
	}
	if cfg.Completion.Provider != "gemini" {
		t.Errorf("Expected default completion provider gemini, got %s", cfg.Completion.Provider)
	}
	if cfg.Embedding.Dimension != 1536 {
		t.Errorf("Expected default dimension 1536, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Retrieval.CandidateScanCap != 500 {
		t.Errorf("Expected scan cap 500, got %d", cfg.Retrieval.CandidateScanCap)
	}
	if cfg.Retrieval.SupersetSize != 20 {
		t.Errorf("Expected superset size 20, got %d", cfg.Retrieval.SupersetSize)
	}
	if cfg.Logging.Enabled {
		t.Error("Logging should be disabled by default")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.DataDir != ".forge" {
		t.Errorf("Expected default data dir, got %s", cfg.Engine.DataDir)
	}
}

func TestLoadParsesAndOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `engine:
  data_dir: /var/lib/forge
  database_file: forge.db
  sweep_interval: 30m
completion:
  provider: anthropic
  model: claude-sonnet-4-20250514
retrieval:
  default_limit: 8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Completion.Provider != "anthropic" {
		t.Errorf("Expected provider anthropic, got %s", cfg.Completion.Provider)
	}
	if cfg.Retrieval.DefaultLimit != 8 {
		t.Errorf("Expected default limit 8, got %d", cfg.Retrieval.DefaultLimit)
	}
	// Unspecified sections keep defaults.
	if cfg.Embedding.Provider != "gemini" {
		t.Errorf("Expected embedding provider default gemini, got %s", cfg.Embedding.Provider)
	}
	if got := cfg.GetSweepInterval(); got != 30*time.Minute {
		t.Errorf("Expected sweep interval 30m, got %v", got)
	}
	if cfg.DatabasePath() != filepath.Join("/var/lib/forge", "forge.db") {
		t.Errorf("Unexpected database path %s", cfg.DatabasePath())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Retrieval.SnippetLength = 120
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Retrieval.SnippetLength != 120 {
		t.Errorf("Expected snippet length 120 after round trip, got %d", loaded.Retrieval.SnippetLength)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Completion.APIKey = "" // no key in env-independent test path
	cfg.Completion.Provider = "gemini"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for missing API key")
	}

	cfg.Completion.Provider = "ollama" // keyless local provider
	cfg.Embedding.Provider = "ollama"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected ollama config to validate, got %v", err)
	}

	cfg.Completion.Provider = "mystery"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for unknown provider")
	}

	cfg = DefaultConfig()
	cfg.Completion.Provider = "ollama"
	cfg.Embedding.Provider = "ollama"
	cfg.Embedding.Dimension = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for zero dimension")
	}
}
