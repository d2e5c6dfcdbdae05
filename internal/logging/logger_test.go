package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// resetState clears package globals between tests.
func resetState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	dataDir = ""
	configLoaded = false
	config = loggingConfig{}
}

func writeTestConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `logging:
  enabled: true
  level: debug
`)

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsEnabled() {
		t.Error("Expected logging to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryStore,
		CategoryLLM,
		CategoryPerception,
		CategorySafety,
		CategoryExtraction,
		CategorySignal,
		CategoryMemory,
		CategoryArtifact,
		CategoryEmbedding,
		CategoryRetrieval,
		CategoryConsolidate,
		CategoryTools,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	CloseAll()

	// Every category should have produced a dated log file.
	entries, err := os.ReadDir(filepath.Join(tempDir, "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	found := make(map[string]bool)
	for _, e := range entries {
		for _, cat := range categories {
			if strings.HasSuffix(e.Name(), "_"+string(cat)+".log") {
				found[string(cat)] = true
			}
		}
	}
	for _, cat := range categories {
		if !found[string(cat)] {
			t.Errorf("Expected log file for category %s", cat)
		}
	}
}

func TestDisabledIsNoOp(t *testing.T) {
	tempDir := t.TempDir()

	// No config file at all: logging stays off.
	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if IsEnabled() {
		t.Error("Expected logging to be disabled without a config file")
	}

	// Logging to a disabled system must not create files.
	Get(CategorySignal).Info("should go nowhere")
	Perception("also nowhere")

	if _, err := os.Stat(filepath.Join(tempDir, "logs")); !os.IsNotExist(err) {
		t.Error("logs directory should not exist when logging is disabled")
	}
}

func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `logging:
  enabled: true
  level: debug
  categories:
    signal: true
    perception: false
`)

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if !IsCategoryEnabled(CategorySignal) {
		t.Error("signal category should be enabled")
	}
	if IsCategoryEnabled(CategoryPerception) {
		t.Error("perception category should be disabled")
	}
	// Unlisted categories default to enabled.
	if !IsCategoryEnabled(CategoryStore) {
		t.Error("unlisted category should default to enabled")
	}
}

func TestAuditTrail(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `logging:
  enabled: true
  level: debug
`)

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	SafetyAudit(AuditSafetyBlock, "user-1", "blocked_medical_disclosure", 42)
	SignalAudit(AuditSignalCreate, "user-1", "conv-9", "struggle_theme/anxiety", map[string]interface{}{"count": 1})
	ToolAudit("save_memory_candidate", "user-1", false, "injection_detected")

	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	var auditName string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_audit.log") {
			auditName = e.Name()
		}
	}
	if auditName == "" {
		t.Fatal("Expected an audit log file")
	}

	data, err := os.ReadFile(filepath.Join(tempDir, "logs", auditName))
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	content := string(data)
	for _, want := range []string{"safety_block", "signal_create", "tool_reject", "blocked_medical_disclosure"} {
		if !strings.Contains(content, want) {
			t.Errorf("audit log missing %q", want)
		}
	}
	// Rejected user text must never be retained.
	if strings.Contains(content, "text\":") {
		t.Error("audit log must not contain raw text fields")
	}
}

func TestTimer(t *testing.T) {
	tempDir := t.TempDir()

	writeTestConfig(t, tempDir, `logging:
  enabled: true
  level: debug
`)

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	timer := StartTimer(CategoryRetrieval, "test operation")
	elapsed := timer.Stop()
	if elapsed < 0 {
		t.Errorf("Expected non-negative duration, got %v", elapsed)
	}
}
