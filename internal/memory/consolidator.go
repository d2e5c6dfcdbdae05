package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"forge/internal/llm"
	"forge/internal/logging"
	"forge/internal/store"
	"forge/internal/types"
)

// Consolidator folds a conversation's session notes into the user's global
// memory state at session end. The merge prefers a grounded model call and
// falls back to verbatim copying, so consolidation never invents facts and
// never fails outright.
type Consolidator struct {
	store  *store.Store
	client llm.Client
	group  singleflight.Group
}

// NewConsolidator returns a consolidator. A nil client disables the model
// merge; the deterministic path still runs.
func NewConsolidator(st *store.Store, client llm.Client) *Consolidator {
	return &Consolidator{store: st, client: client}
}

// ConsolidateResult summarizes one consolidation run.
type ConsolidateResult struct {
	SessionNotes int  `json:"sessionNotes"`
	Merged       int  `json:"merged"`
	Duplicates   int  `json:"duplicates"`
	UsedModel    bool `json:"usedModel"`
}

// Consolidate merges the conversation's session notes into the user's
// global notes and deletes them once the state write has succeeded.
// Concurrent calls for the same user collapse into one run.
func (c *Consolidator) Consolidate(ctx context.Context, userID, conversationID string) (*ConsolidateResult, error) {
	if userID == "" || conversationID == "" {
		return nil, fmt.Errorf("consolidation requires user and conversation ids")
	}

	v, err, _ := c.group.Do(userID, func() (interface{}, error) {
		return c.run(ctx, userID, conversationID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ConsolidateResult), nil
}

func (c *Consolidator) run(ctx context.Context, userID, conversationID string) (*ConsolidateResult, error) {
	timer := logging.StartTimer(logging.CategoryConsolidate, "Consolidate")
	defer timer.Stop()

	now := time.Now()
	notes, err := c.store.ListSessionNotes(ctx, userID, conversationID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list session notes: %w", err)
	}
	result := &ConsolidateResult{SessionNotes: len(notes)}
	if len(notes) == 0 {
		logging.ConsolidateDebug("No session notes for user %s conversation %s", userID, conversationID)
		return result, nil
	}

	state, err := c.store.GetUserMemoryState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory state: %w", err)
	}

	// Notes with an expiry stay session-bounded facts: they are copied
	// verbatim so their expiresAtISO survives. Only durable notes go
	// through the model merge.
	var durable, expiring []types.SessionNote
	for _, n := range notes {
		if n.ExpiresAt != nil {
			expiring = append(expiring, n)
		} else {
			durable = append(durable, n)
		}
	}

	merged := c.mergeWithModel(ctx, durable, state.GlobalNotes)
	if merged != nil {
		result.UsedModel = true
	} else {
		merged = copyVerbatim(durable)
	}
	merged = append(merged, copyVerbatim(expiring)...)

	seen := make(map[string]bool)
	for _, note := range merged {
		norm := types.NormalizeNoteText(note.Text)
		if norm == "" {
			continue
		}
		if seen[norm] || state.HasNote(note.Text) {
			result.Duplicates++
			continue
		}
		seen[norm] = true
		state.GlobalNotes = append(state.GlobalNotes, note)
		result.Merged++
	}

	if err := c.store.PutUserMemoryState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to write memory state: %w", err)
	}

	// Source notes are deleted only now, after the state write landed.
	ids := make([]int64, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	if err := c.store.DeleteSessionNotes(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to delete consolidated notes: %w", err)
	}

	logging.Consolidate("Consolidated %d note(s) into %d global note(s) for user %s (model=%v)", result.SessionNotes, result.Merged, userID, result.UsedModel)
	logging.Audit(logging.AuditEvent{
		EventType:      logging.AuditConsolidateRun,
		Category:       string(logging.CategoryConsolidate),
		UserID:         userID,
		ConversationID: conversationID,
		Success:        true,
		Fields: map[string]interface{}{
			"sessionNotes": result.SessionNotes,
			"merged":       result.Merged,
			"duplicates":   result.Duplicates,
			"usedModel":    result.UsedModel,
		},
	})
	return result, nil
}

// mergeWithModel asks the completion model to group and rephrase the
// notes. Returns nil when the model is unavailable, fails, or produces
// output that is not grounded in the source notes, in which case the
// caller falls back to verbatim copying.
func (c *Consolidator) mergeWithModel(ctx context.Context, notes []types.SessionNote, existing []types.MemoryNote) []types.MemoryNote {
	if c.client == nil || len(notes) == 0 {
		return nil
	}

	response, err := c.client.CompleteWithSystem(ctx, consolidateSystemPrompt, buildConsolidatePrompt(notes, existing))
	if err != nil {
		logging.ConsolidateError("Model merge failed, using verbatim copy: %v", err)
		return nil
	}
	payload := llm.ExtractJSONArray(response)
	if payload == "" {
		logging.ConsolidateError("Model merge returned no JSON array, using verbatim copy")
		return nil
	}

	var wire []struct {
		Text     string   `json:"text"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		logging.ConsolidateError("Model merge returned malformed JSON, using verbatim copy: %v", err)
		return nil
	}
	if len(wire) == 0 || len(wire) > len(notes) {
		logging.ConsolidateError("Model merge returned %d note(s) for %d input(s), using verbatim copy", len(wire), len(notes))
		return nil
	}

	sourceTokens := tokenSet(notes)
	nowISO := time.Now().UTC().Format(time.RFC3339)
	merged := make([]types.MemoryNote, 0, len(wire))
	for _, w := range wire {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		// Every merged note must share vocabulary with the source notes;
		// one ungrounded note poisons the whole batch.
		if !grounded(text, sourceTokens) {
			logging.ConsolidateError("Model merge produced ungrounded note, using verbatim copy")
			return nil
		}
		merged = append(merged, types.MemoryNote{
			Text:         text,
			Keywords:     types.NormalizeKeywords(w.Keywords),
			CreatedAtISO: nowISO,
		})
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// copyVerbatim is the deterministic fallback: each session note becomes a
// global note unchanged, expiry preserved.
func copyVerbatim(notes []types.SessionNote) []types.MemoryNote {
	out := make([]types.MemoryNote, 0, len(notes))
	for _, n := range notes {
		note := types.MemoryNote{
			Text:         n.Text,
			CreatedAtISO: n.CreatedAt.UTC().Format(time.RFC3339),
		}
		if n.ExpiresAt != nil {
			note.ExpiresAtISO = n.ExpiresAt.UTC().Format(time.RFC3339)
		}
		out = append(out, note)
	}
	return out
}

// tokenSet collects the significant words of the source notes.
func tokenSet(notes []types.SessionNote) map[string]bool {
	set := make(map[string]bool)
	for _, n := range notes {
		for _, word := range strings.Fields(strings.ToLower(n.Text)) {
			word = strings.Trim(word, ".,;:!?'\"()[]")
			if len(word) >= 4 {
				set[word] = true
			}
		}
	}
	return set
}

// grounded reports whether text shares at least one significant word with
// the source notes.
func grounded(text string, source map[string]bool) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?'\"()[]")
		if source[word] {
			return true
		}
	}
	return false
}

const consolidateSystemPrompt = `You consolidate a user's session notes from a Bible-study conversation into durable memory notes.

Rules:
- Merge related notes; prefer fewer, clearer notes over many fragments.
- Use only facts present in the session notes. Never add details, names, or interpretations the notes do not contain.
- Do not repeat anything already in the existing global notes.
- Respond ONLY with a JSON array: [{"text": "...", "keywords": ["..."]}]
- Return [] if nothing new is worth keeping.`

func buildConsolidatePrompt(notes []types.SessionNote, existing []types.MemoryNote) string {
	var b strings.Builder
	if len(existing) > 0 {
		b.WriteString("Existing global notes (context only, do not repeat):\n")
		for _, n := range existing {
			b.WriteString("- ")
			b.WriteString(n.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Session notes to consolidate:\n")
	for i, n := range notes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n.Text)
	}
	return b.String()
}
