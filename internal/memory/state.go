package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forge/internal/logging"
	"forge/internal/safety"
	"forge/internal/types"
	"forge/internal/vocab"
)

// Profile is the consolidated view of what the engine knows about a user:
// the durable memories promoted by the state machine plus the global notes
// folded in by the consolidator.
type Profile struct {
	SchemaVersion string             `json:"schemaVersion"`
	GlobalNotes   []types.MemoryNote `json:"globalNotes"`
	Memories      []ProfileMemory    `json:"memories"`
}

// ProfileMemory is the externally visible shape of a durable memory.
type ProfileMemory struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	Strength    string `json:"strength"`
	Occurrences int    `json:"occurrences"`
	LastSeenISO string `json:"lastSeenISO"`
}

// GetProfile assembles a user's profile from the state document and the
// active memory rows. Global note text is re-screened through the safety
// check on the way out; a note that fails is dropped from the profile,
// never redacted.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	state, err := e.store.GetUserMemoryState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory state: %w", err)
	}
	memories, err := e.store.ListMemories(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	notes := make([]types.MemoryNote, 0, len(state.GlobalNotes))
	for _, n := range state.GlobalNotes {
		if verdict := safety.Check(n.Text); !verdict.Allowed {
			logging.MemoryDebug("Screened global note out of profile for user %s (%s)", userID, verdict.Reason)
			continue
		}
		notes = append(notes, n)
	}

	profile := &Profile{
		SchemaVersion: state.SchemaVersion,
		GlobalNotes:   notes,
		Memories:      make([]ProfileMemory, 0, len(memories)),
	}
	for _, m := range memories {
		profile.Memories = append(profile.Memories, ProfileMemory{
			Type:        string(m.Type),
			Value:       m.Value.Raw(),
			Strength:    string(m.Strength),
			Occurrences: m.Occurrences,
			LastSeenISO: m.LastSeenAt.Format(time.RFC3339),
		})
	}
	return profile, nil
}

// CaptureNote appends an explicitly captured note to the user's global
// state. Returns saved=false with a reason for empty or duplicate notes;
// the error is reserved for storage failures.
func (e *Engine) CaptureNote(ctx context.Context, userID string, note types.MemoryNote) (saved bool, reason string, err error) {
	note.Text = strings.TrimSpace(note.Text)
	if note.Text == "" {
		return false, "empty note text", nil
	}
	if userID == "" {
		return false, "missing user id", nil
	}

	state, err := e.store.GetUserMemoryState(ctx, userID)
	if err != nil {
		return false, "", fmt.Errorf("failed to load memory state: %w", err)
	}
	if state.HasNote(note.Text) {
		logging.MemoryDebug("Rejected duplicate note for user %s", userID)
		return false, "duplicate note", nil
	}

	if note.CreatedAtISO == "" {
		note.CreatedAtISO = time.Now().UTC().Format(time.RFC3339)
	}
	state.GlobalNotes = append(state.GlobalNotes, note)
	if err := e.store.PutUserMemoryState(ctx, state); err != nil {
		return false, "", fmt.Errorf("failed to write memory state: %w", err)
	}

	logging.Memory("Captured note for user %s (%d global notes)", userID, len(state.GlobalNotes))
	logging.SignalAudit(logging.AuditMemoryCapture, userID, "", "global_note", map[string]interface{}{
		"textLen":  len(note.Text),
		"keywords": len(note.Keywords),
	})
	return true, "", nil
}

// SaveSessionNote records a conversation-scoped note for later
// consolidation. Text is bounded the same way global notes are.
func (e *Engine) SaveSessionNote(ctx context.Context, userID, conversationID, text string, expiresAt *time.Time) (saved bool, reason string, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, "empty note text", nil
	}
	if userID == "" || conversationID == "" {
		return false, "missing user or conversation id", nil
	}

	note := &types.SessionNote{
		UserID:         userID,
		ConversationID: conversationID,
		Text:           types.Truncate(text, vocab.MaxNoteTextLen),
		CreatedAt:      time.Now(),
		ExpiresAt:      expiresAt,
	}
	if err := e.store.InsertSessionNote(ctx, note); err != nil {
		return false, "", fmt.Errorf("failed to save session note: %w", err)
	}

	logging.MemoryDebug("Saved session note %d for user %s conversation %s", note.ID, userID, conversationID)
	return true, "", nil
}
