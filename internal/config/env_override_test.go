package config

import (
	"path/filepath"
	"testing"
)

func TestEnvOverridesAPIKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OLLAMA_URL", "http://embed-host:11434")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Default provider is gemini, so the gemini key wins for completion.
	if cfg.Completion.Provider != "gemini" {
		t.Errorf("Expected provider gemini, got %s", cfg.Completion.Provider)
	}
	if cfg.Completion.APIKey != "gem-key" {
		t.Errorf("Expected gemini key applied, got %q", cfg.Completion.APIKey)
	}
	if cfg.Embedding.APIKey != "gem-key" {
		t.Errorf("Expected embedding key from GEMINI_API_KEY, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.BaseURL != "http://embed-host:11434" {
		t.Errorf("Expected OLLAMA_URL override, got %q", cfg.Embedding.BaseURL)
	}
}

func TestEnvOverrideRespectsConfiguredProvider(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	cfg := DefaultConfig()
	cfg.Completion.Provider = "anthropic"
	cfg.applyEnvOverrides()

	if cfg.Completion.APIKey != "ant-key" {
		t.Errorf("Expected anthropic key for configured provider, got %q", cfg.Completion.APIKey)
	}
}

func TestEnvOverridePaths(t *testing.T) {
	t.Setenv("FORGE_DATA_DIR", "/srv/forge")
	t.Setenv("FORGE_DB", "engine.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Engine.DataDir != "/srv/forge" {
		t.Errorf("Expected data dir override, got %s", cfg.Engine.DataDir)
	}
	if cfg.DatabasePath() != filepath.Join("/srv/forge", "engine.db") {
		t.Errorf("Unexpected database path %s", cfg.DatabasePath())
	}
}
