package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"forge/internal/types"
	"forge/internal/vocab"
)

// baseTime is millisecond-aligned so formatTime round trips exactly.
var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "forge.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func themeValue(t *testing.T, raw string) types.Value {
	t.Helper()
	v, ok := types.ValueFrom(vocab.MemoryStruggleTheme, raw)
	if !ok {
		t.Fatalf("ValueFrom(struggle_theme, %q) rejected a vocabulary value", raw)
	}
	return v
}

func stageValue(t *testing.T, raw string) types.Value {
	t.Helper()
	v, ok := types.ValueFrom(vocab.MemoryFaithStage, raw)
	if !ok {
		t.Fatalf("ValueFrom(faith_stage, %q) rejected a vocabulary value", raw)
	}
	return v
}

func TestNewCreatesSchema(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	requiredTables := []string{"signals", "memories", "artifacts", "artifact_edges", "artifact_embeddings", "session_notes", "user_memory_state"}
	for _, table := range requiredTables {
		if _, ok := stats[table]; !ok {
			t.Errorf("Stats missing table: %s", table)
		}
	}
}

func TestNewCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "forge.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()
}

func TestTimeRoundTrip(t *testing.T) {
	formatted := formatTime(baseTime)
	parsed := parseTime(formatted)
	if !parsed.Equal(baseTime) {
		t.Errorf("round trip = %v, want %v", parsed, baseTime)
	}

	// Tolerate the second-precision form CURRENT_TIMESTAMP writes.
	legacy := parseTime("2025-06-01 12:00:00")
	if legacy.IsZero() {
		t.Error("parseTime rejected CURRENT_TIMESTAMP format")
	}
}
