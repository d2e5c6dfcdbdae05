package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"forge/internal/types"
)

func TestSessionNoteRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expiry := baseTime.Add(24 * time.Hour)
	first := &types.SessionNote{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Text:           "Studying the book of James this month",
		CreatedAt:      baseTime,
	}
	second := &types.SessionNote{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Text:           "Asked about patience in chapter 1",
		CreatedAt:      baseTime.Add(time.Minute),
		ExpiresAt:      &expiry,
	}
	for _, note := range []*types.SessionNote{first, second} {
		if err := s.InsertSessionNote(ctx, note); err != nil {
			t.Fatalf("InsertSessionNote error = %v", err)
		}
		if note.ID == 0 {
			t.Fatal("insert should fill in the row id")
		}
	}

	got, err := s.ListSessionNotes(ctx, "user-1", "conv-1", baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListSessionNotes error = %v", err)
	}
	want := []types.SessionNote{*first, *second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListSessionNotes mismatch (-want +got):\n%s", diff)
	}
}

func TestListSessionNotesScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []types.SessionNote{
		{UserID: "user-1", ConversationID: "conv-1", Text: "mine", CreatedAt: baseTime},
		{UserID: "user-1", ConversationID: "conv-2", Text: "other conversation", CreatedAt: baseTime},
		{UserID: "user-2", ConversationID: "conv-1", Text: "other user", CreatedAt: baseTime},
	}
	for i := range seed {
		if err := s.InsertSessionNote(ctx, &seed[i]); err != nil {
			t.Fatalf("InsertSessionNote error = %v", err)
		}
	}

	got, err := s.ListSessionNotes(ctx, "user-1", "conv-1", baseTime)
	if err != nil {
		t.Fatalf("ListSessionNotes error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "mine" {
		t.Errorf("got %+v, want only the user-1/conv-1 note", got)
	}
}

func TestListSessionNotesExcludesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expiry := baseTime.Add(time.Hour)
	expiring := &types.SessionNote{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Text:           "short lived",
		CreatedAt:      baseTime,
		ExpiresAt:      &expiry,
	}
	durable := &types.SessionNote{
		UserID:         "user-1",
		ConversationID: "conv-1",
		Text:           "no expiry",
		CreatedAt:      baseTime,
	}
	for _, note := range []*types.SessionNote{expiring, durable} {
		if err := s.InsertSessionNote(ctx, note); err != nil {
			t.Fatalf("InsertSessionNote error = %v", err)
		}
	}

	got, err := s.ListSessionNotes(ctx, "user-1", "conv-1", baseTime.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ListSessionNotes error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "no expiry" {
		t.Errorf("got %+v, want only the unexpired note", got)
	}
}

func TestDeleteSessionNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	notes := make([]*types.SessionNote, 3)
	for i := range notes {
		notes[i] = &types.SessionNote{
			UserID:         "user-1",
			ConversationID: "conv-1",
			Text:           "note",
			CreatedAt:      baseTime.Add(time.Duration(i) * time.Minute),
		}
		if err := s.InsertSessionNote(ctx, notes[i]); err != nil {
			t.Fatalf("InsertSessionNote error = %v", err)
		}
	}

	if err := s.DeleteSessionNotes(ctx, []int64{notes[0].ID, notes[2].ID}); err != nil {
		t.Fatalf("DeleteSessionNotes error = %v", err)
	}
	if err := s.DeleteSessionNotes(ctx, nil); err != nil {
		t.Fatalf("DeleteSessionNotes(nil) error = %v", err)
	}

	got, err := s.ListSessionNotes(ctx, "user-1", "conv-1", baseTime)
	if err != nil {
		t.Fatalf("ListSessionNotes error = %v", err)
	}
	if len(got) != 1 || got[0].ID != notes[1].ID {
		t.Errorf("got %+v, want only the middle note to survive", got)
	}
}

func TestSweepExpiredSessionNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expired := baseTime.Add(time.Hour)
	live := baseTime.Add(48 * time.Hour)
	seed := []types.SessionNote{
		{UserID: "user-1", ConversationID: "conv-1", Text: "gone", CreatedAt: baseTime, ExpiresAt: &expired},
		{UserID: "user-1", ConversationID: "conv-1", Text: "still here", CreatedAt: baseTime, ExpiresAt: &live},
		{UserID: "user-1", ConversationID: "conv-1", Text: "permanent", CreatedAt: baseTime},
	}
	for i := range seed {
		if err := s.InsertSessionNote(ctx, &seed[i]); err != nil {
			t.Fatalf("InsertSessionNote error = %v", err)
		}
	}

	swept, err := s.SweepExpiredSessionNotes(ctx, baseTime.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("SweepExpiredSessionNotes error = %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	got, err := s.ListSessionNotes(ctx, "user-1", "conv-1", baseTime.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ListSessionNotes error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("surviving notes = %d, want 2", len(got))
	}
}
