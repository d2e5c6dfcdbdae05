package types

import (
	"fmt"
	"strings"
	"testing"

	"forge/internal/vocab"
)

func TestNormalizeKeyword(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Prayer Life", "prayer_life"},
		{"  GRIEF  ", "grief"},
		{"mom's surgery", "mom_s_surgery"},
		{"!!!", ""},
		{"already_snake", "already_snake"},
		{"trailing punctuation!", "trailing_punctuation"},
	}
	for _, tt := range tests {
		if got := NormalizeKeyword(tt.raw); got != tt.want {
			t.Errorf("NormalizeKeyword(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeKeywordLength(t *testing.T) {
	long := strings.Repeat("ab", 40)
	got := NormalizeKeyword(long)
	if len(got) > vocab.MaxKeywordLen {
		t.Errorf("Keyword not capped: %d bytes", len(got))
	}
	if strings.HasSuffix(got, "_") {
		t.Errorf("Capped keyword ends in underscore: %q", got)
	}
}

func TestNormalizeKeywords(t *testing.T) {
	raws := []string{"Anger", "anger!", "", "Peace", "JOY", "joy"}
	got := NormalizeKeywords(raws)
	want := []string{"anger", "peace", "joy"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeKeywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	var many []string
	for i := 0; i < 12; i++ {
		many = append(many, fmt.Sprintf("kw%d", i))
	}
	if got := NormalizeKeywords(many); len(got) != vocab.MaxKeywordsPerNote {
		t.Errorf("Keyword list not capped: %d", len(got))
	}
}

func TestCoerceBounds(t *testing.T) {
	state := NewUserMemoryState("user-1")
	state.SchemaVersion = "something.old.v0"
	state.GlobalNotes = []MemoryNote{
		{Text: "   "},
		{Text: strings.Repeat("x", 600), CreatedAtISO: "2026-01-01T00:00:00Z"},
		{Text: "keeps keywords", Keywords: []string{"One", "Two!", "one"}, CreatedAtISO: "2026-01-02T00:00:00Z"},
	}

	state.Coerce()

	if state.SchemaVersion != vocab.MemoryStateSchemaVersion {
		t.Errorf("Schema version not stamped: %s", state.SchemaVersion)
	}
	if len(state.GlobalNotes) != 2 {
		t.Fatalf("Empty note not dropped: %d notes", len(state.GlobalNotes))
	}
	if len(state.GlobalNotes[0].Text) > vocab.MaxNoteTextLen {
		t.Errorf("Note text not truncated: %d bytes", len(state.GlobalNotes[0].Text))
	}
	if kws := state.GlobalNotes[1].Keywords; len(kws) != 2 || kws[0] != "one" || kws[1] != "two" {
		t.Errorf("Keywords not normalized: %v", kws)
	}
}

func TestCoerceEvictsOldest(t *testing.T) {
	state := NewUserMemoryState("user-1")
	for i := 0; i < vocab.MaxGlobalNotes+5; i++ {
		state.GlobalNotes = append(state.GlobalNotes, MemoryNote{Text: fmt.Sprintf("note %d", i)})
	}

	state.Coerce()

	if len(state.GlobalNotes) != vocab.MaxGlobalNotes {
		t.Fatalf("List not capped: %d", len(state.GlobalNotes))
	}
	if state.GlobalNotes[0].Text != "note 5" {
		t.Errorf("Oldest not evicted first: head is %q", state.GlobalNotes[0].Text)
	}
}

func TestHasNote(t *testing.T) {
	state := NewUserMemoryState("user-1")
	state.GlobalNotes = []MemoryNote{{Text: "praying for mom"}}

	if !state.HasNote("Praying for  MOM") {
		t.Error("Normalized duplicate not detected")
	}
	if state.HasNote("praying for dad") {
		t.Error("Distinct note reported as duplicate")
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	s := "aébc" // 'é' is two bytes starting at index 1
	got := Truncate(s, 2)
	if got != "a" {
		t.Errorf("Truncate split a rune: %q", got)
	}
	if Truncate("abc", 10) != "abc" {
		t.Error("Truncate changed a short string")
	}
}
