package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"forge/internal/store"
	"forge/internal/types"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func addSessionNote(t *testing.T, st *store.Store, conversationID, text string, expiresAt *time.Time) {
	t.Helper()
	note := &types.SessionNote{
		UserID:         "user-1",
		ConversationID: conversationID,
		Text:           text,
		CreatedAt:      time.Now().Add(-time.Hour),
		ExpiresAt:      expiresAt,
	}
	if err := st.InsertSessionNote(context.Background(), note); err != nil {
		t.Fatalf("InsertSessionNote error = %v", err)
	}
}

func TestConsolidateVerbatimWithoutModel(t *testing.T) {
	_, st := newTestEngine(t)
	c := NewConsolidator(st, nil)
	ctx := context.Background()

	expiry := time.Now().Add(24 * time.Hour)
	addSessionNote(t, st, "conv-1", "Discussed the parable of the sower", nil)
	addSessionNote(t, st, "conv-1", "Fasting until Friday", &expiry)

	result, err := c.Consolidate(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	if result.UsedModel {
		t.Error("used model without a client")
	}
	if result.SessionNotes != 2 || result.Merged != 2 {
		t.Errorf("result = %+v", result)
	}

	state, err := st.GetUserMemoryState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserMemoryState error = %v", err)
	}
	if len(state.GlobalNotes) != 2 {
		t.Fatalf("global notes = %d, want 2", len(state.GlobalNotes))
	}

	var expiring *types.MemoryNote
	for i := range state.GlobalNotes {
		if state.GlobalNotes[i].Text == "Fasting until Friday" {
			expiring = &state.GlobalNotes[i]
		}
	}
	if expiring == nil {
		t.Fatal("expiring note missing from global state")
	}
	if expiring.ExpiresAtISO == "" {
		t.Error("expiresAtISO not preserved")
	}

	// Consolidated notes are deleted from the session table.
	remaining, err := st.ListSessionNotes(ctx, "user-1", "conv-1", time.Now())
	if err != nil {
		t.Fatalf("ListSessionNotes error = %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("session notes after consolidation = %d, want 0", len(remaining))
	}
}

func TestConsolidateDeduplicates(t *testing.T) {
	_, st := newTestEngine(t)
	c := NewConsolidator(st, nil)
	ctx := context.Background()

	state := types.NewUserMemoryState("user-1")
	state.GlobalNotes = []types.MemoryNote{{Text: "Praying for mom", CreatedAtISO: "2025-05-01T00:00:00Z"}}
	if err := st.PutUserMemoryState(ctx, state); err != nil {
		t.Fatalf("PutUserMemoryState error = %v", err)
	}

	addSessionNote(t, st, "conv-1", "praying for  MOM", nil)
	addSessionNote(t, st, "conv-1", "Reading Romans together", nil)

	result, err := c.Consolidate(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	if result.Merged != 1 {
		t.Errorf("merged = %d, want 1", result.Merged)
	}
	if result.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", result.Duplicates)
	}

	got, err := st.GetUserMemoryState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserMemoryState error = %v", err)
	}
	if len(got.GlobalNotes) != 2 {
		t.Errorf("global notes = %d, want 2", len(got.GlobalNotes))
	}
}

func TestConsolidateModelMerge(t *testing.T) {
	_, st := newTestEngine(t)
	client := &fakeClient{response: `[{"text": "Studying the parable of the sower and its soils", "keywords": ["Parable", "Sower"]}]`}
	c := NewConsolidator(st, client)
	ctx := context.Background()

	addSessionNote(t, st, "conv-1", "Discussed the parable of the sower", nil)
	addSessionNote(t, st, "conv-1", "Asked about the thorny soil", nil)

	result, err := c.Consolidate(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	if !result.UsedModel {
		t.Error("model merge not used")
	}
	if result.Merged != 1 {
		t.Errorf("merged = %d, want 1", result.Merged)
	}

	state, err := st.GetUserMemoryState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserMemoryState error = %v", err)
	}
	if len(state.GlobalNotes) != 1 {
		t.Fatalf("global notes = %d, want 1", len(state.GlobalNotes))
	}
	note := state.GlobalNotes[0]
	if note.Text != "Studying the parable of the sower and its soils" {
		t.Errorf("note text = %q", note.Text)
	}
	if len(note.Keywords) != 2 || note.Keywords[0] != "parable" {
		t.Errorf("keywords = %v", note.Keywords)
	}
}

func TestConsolidateUngroundedModelOutputFallsBack(t *testing.T) {
	_, st := newTestEngine(t)
	client := &fakeClient{response: `[{"text": "Loves pineapple pizza", "keywords": []}]`}
	c := NewConsolidator(st, client)
	ctx := context.Background()

	addSessionNote(t, st, "conv-1", "Discussed the parable of the sower", nil)

	result, err := c.Consolidate(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	if result.UsedModel {
		t.Error("ungrounded output should not count as a model merge")
	}

	state, err := st.GetUserMemoryState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserMemoryState error = %v", err)
	}
	if len(state.GlobalNotes) != 1 || state.GlobalNotes[0].Text != "Discussed the parable of the sower" {
		t.Errorf("global notes = %+v, want verbatim copy", state.GlobalNotes)
	}
}

func TestConsolidateProviderErrorFallsBack(t *testing.T) {
	_, st := newTestEngine(t)
	client := &fakeClient{err: errors.New("provider down")}
	c := NewConsolidator(st, client)
	ctx := context.Background()

	addSessionNote(t, st, "conv-1", "Discussed the parable of the sower", nil)

	result, err := c.Consolidate(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	if result.UsedModel || result.Merged != 1 {
		t.Errorf("result = %+v, want verbatim merge of 1", result)
	}
}

func TestConsolidateModelCannotExpandNotes(t *testing.T) {
	_, st := newTestEngine(t)
	// Two output notes from one input would be invention; the batch is
	// rejected wholesale.
	client := &fakeClient{response: `[{"text": "Discussed the parable"}, {"text": "Discussed the sower"}]`}
	c := NewConsolidator(st, client)
	ctx := context.Background()

	addSessionNote(t, st, "conv-1", "Discussed the parable of the sower", nil)

	result, err := c.Consolidate(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	if result.UsedModel {
		t.Error("expanding merge should fall back")
	}
	if result.Merged != 1 {
		t.Errorf("merged = %d, want 1", result.Merged)
	}
}

func TestConsolidateEmptyConversation(t *testing.T) {
	_, st := newTestEngine(t)
	client := &fakeClient{response: "[]"}
	c := NewConsolidator(st, client)

	result, err := c.Consolidate(context.Background(), "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	if result.SessionNotes != 0 || result.Merged != 0 {
		t.Errorf("result = %+v", result)
	}
	if client.calls != 0 {
		t.Errorf("model called %d time(s) with no notes", client.calls)
	}
}

func TestConsolidateExpiringNotesSkipModel(t *testing.T) {
	_, st := newTestEngine(t)
	client := &fakeClient{response: `[]`}
	c := NewConsolidator(st, client)
	ctx := context.Background()

	expiry := time.Now().Add(24 * time.Hour)
	addSessionNote(t, st, "conv-1", "Fasting until Friday", &expiry)

	result, err := c.Consolidate(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("Consolidate error = %v", err)
	}
	// No durable notes, so the model is never consulted and the expiring
	// note is copied verbatim.
	if client.calls != 0 {
		t.Errorf("model called %d time(s) for expiring-only notes", client.calls)
	}
	if result.Merged != 1 {
		t.Errorf("merged = %d, want 1", result.Merged)
	}
}

func TestConsolidateRequiresIdentifiers(t *testing.T) {
	_, st := newTestEngine(t)
	c := NewConsolidator(st, nil)

	if _, err := c.Consolidate(context.Background(), "", "conv-1"); err == nil {
		t.Error("accepted empty user id")
	}
	if _, err := c.Consolidate(context.Background(), "user-1", ""); err == nil {
		t.Error("accepted empty conversation id")
	}
}
