package types

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"forge/internal/vocab"
)

// UserMemoryState is the per-user persisted memory document. The stored
// JSON carries only the schema version and note list; the user id is the
// row key.
type UserMemoryState struct {
	UserID        string       `json:"-"`
	SchemaVersion string       `json:"schemaVersion"`
	GlobalNotes   []MemoryNote `json:"globalNotes"`
}

// MemoryNote is one durable note in the global list.
type MemoryNote struct {
	Text         string   `json:"text"`
	Keywords     []string `json:"keywords,omitempty"`
	CreatedAtISO string   `json:"createdAtISO"`
	ExpiresAtISO string   `json:"expiresAtISO,omitempty"`
}

// NewUserMemoryState returns an empty state document for a user.
func NewUserMemoryState(userID string) *UserMemoryState {
	return &UserMemoryState{
		UserID:        userID,
		SchemaVersion: vocab.MemoryStateSchemaVersion,
		GlobalNotes:   []MemoryNote{},
	}
}

// Coerce normalizes a state document to the schema bounds. Documents are
// clamped, never rejected: the schema version is stamped, note text is
// trimmed and truncated, keywords are normalized and capped, empty notes
// are dropped, and the list keeps only the newest MaxGlobalNotes entries
// (oldest evicted first).
func (s *UserMemoryState) Coerce() {
	s.SchemaVersion = vocab.MemoryStateSchemaVersion

	kept := make([]MemoryNote, 0, len(s.GlobalNotes))
	for _, note := range s.GlobalNotes {
		note.Text = strings.TrimSpace(note.Text)
		if note.Text == "" {
			continue
		}
		note.Text = Truncate(note.Text, vocab.MaxNoteTextLen)
		note.Keywords = NormalizeKeywords(note.Keywords)
		kept = append(kept, note)
	}

	if len(kept) > vocab.MaxGlobalNotes {
		kept = kept[len(kept)-vocab.MaxGlobalNotes:]
	}
	s.GlobalNotes = kept
}

// HasNote reports whether the state already contains a note with the same
// normalized text.
func (s *UserMemoryState) HasNote(text string) bool {
	norm := NormalizeNoteText(text)
	for _, note := range s.GlobalNotes {
		if NormalizeNoteText(note.Text) == norm {
			return true
		}
	}
	return false
}

// NormalizeKeyword lowercases and snake-cases a keyword: runs of
// non-alphanumeric characters collapse to single underscores and the result
// is capped at MaxKeywordLen bytes. Returns "" when nothing survives.
func NormalizeKeyword(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	pendingSep := false
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
		} else {
			pendingSep = true
		}
	}

	kw := b.String()
	if len(kw) > vocab.MaxKeywordLen {
		kw = strings.TrimSuffix(Truncate(kw, vocab.MaxKeywordLen), "_")
	}
	return kw
}

// NormalizeKeywords normalizes each keyword, dropping empties and
// duplicates, capped at MaxKeywordsPerNote.
func NormalizeKeywords(raws []string) []string {
	if len(raws) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, raw := range raws {
		kw := NormalizeKeyword(raw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
		if len(out) == vocab.MaxKeywordsPerNote {
			break
		}
	}
	return out
}

// NormalizeNoteText is the duplicate-detection key for note text:
// lowercased with whitespace collapsed.
func NormalizeNoteText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
