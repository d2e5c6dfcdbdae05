package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"forge/internal/store"
	"forge/internal/types"
	"forge/internal/vocab"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "forge.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewEngine(st), st
}

func anxietyCandidate() types.MemoryCandidate {
	return types.MemoryCandidate{
		Type:       vocab.MemoryStruggleTheme,
		Value:      "anxiety",
		Confidence: 0.85,
		Evidence:   "I've been really anxious lately",
	}
}

func process(t *testing.T, e *Engine, conversationID string, at time.Time) Outcome {
	t.Helper()
	outcome, err := e.Process(context.Background(), "user-1", conversationID, anxietyCandidate(), ProcessOptions{Now: at})
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	return outcome
}

func TestProcessFirstSightingCreatesSignal(t *testing.T) {
	e, _ := newTestEngine(t)

	outcome := process(t, e, "conv-1", baseTime)
	if outcome.Action != ActionCreatedSignal {
		t.Fatalf("action = %s, want created_signal", outcome.Action)
	}
	if outcome.Signal == nil || outcome.Signal.Count != 1 {
		t.Fatalf("signal = %+v", outcome.Signal)
	}
	if !outcome.Signal.ExpiresAt.Equal(baseTime.Add(vocab.SignalTTL)) {
		t.Errorf("expiry = %v", outcome.Signal.ExpiresAt)
	}
}

func TestProcessSameConversationIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)

	process(t, e, "conv-1", baseTime)
	outcome := process(t, e, "conv-1", baseTime.Add(time.Minute))
	if outcome.Action != ActionSkippedDoubleCount {
		t.Fatalf("action = %s, want skipped_double_count", outcome.Action)
	}
	if outcome.Signal.Count != 1 {
		t.Errorf("count = %d, want 1", outcome.Signal.Count)
	}
}

func TestProcessSecondConversationPromotes(t *testing.T) {
	e, st := newTestEngine(t)

	process(t, e, "conv-1", baseTime)
	outcome := process(t, e, "conv-2", baseTime.Add(time.Hour))
	if outcome.Action != ActionPromoted {
		t.Fatalf("action = %s, want promoted", outcome.Action)
	}
	if outcome.Memory == nil {
		t.Fatal("promoted outcome has no memory")
	}
	if outcome.Memory.Occurrences != 2 {
		t.Errorf("occurrences = %d, want 2", outcome.Memory.Occurrences)
	}
	if outcome.Memory.Strength != vocab.StrengthLight {
		t.Errorf("strength = %s, want light", outcome.Memory.Strength)
	}
	if outcome.Memory.Source != vocab.SourceSignalPromotion {
		t.Errorf("source = %s", outcome.Memory.Source)
	}

	// Promotion is exclusive: no residual signal row.
	value, _ := types.ValueFrom(vocab.MemoryStruggleTheme, "anxiety")
	sig, err := st.GetSignal(context.Background(), "user-1", value)
	if err != nil {
		t.Fatalf("GetSignal error = %v", err)
	}
	if sig != nil {
		t.Errorf("signal survived promotion: %+v", sig)
	}
}

func TestProcessAfterPromotionReinforces(t *testing.T) {
	e, _ := newTestEngine(t)

	process(t, e, "conv-1", baseTime)
	process(t, e, "conv-2", baseTime.Add(time.Hour))

	outcome := process(t, e, "conv-3", baseTime.Add(2*time.Hour))
	if outcome.Action != ActionReinforced {
		t.Fatalf("action = %s, want reinforced", outcome.Action)
	}
	if outcome.Memory.Occurrences != 3 {
		t.Errorf("occurrences = %d, want 3", outcome.Memory.Occurrences)
	}
	// Reinforcement ignores the double-count rule: same conversation
	// reinforces again because memories track occurrences, not sightings.
	outcome = process(t, e, "conv-3", baseTime.Add(3*time.Hour))
	if outcome.Action != ActionReinforced {
		t.Fatalf("action = %s, want reinforced", outcome.Action)
	}
	if outcome.Memory.Occurrences != 4 {
		t.Errorf("occurrences = %d, want 4", outcome.Memory.Occurrences)
	}
	if outcome.Memory.Strength != vocab.StrengthModerate {
		t.Errorf("strength at 4 = %s, want moderate", outcome.Memory.Strength)
	}
}

func TestProcessRejectsOutOfVocabulary(t *testing.T) {
	e, _ := newTestEngine(t)

	candidate := types.MemoryCandidate{Type: vocab.MemoryStruggleTheme, Value: "happiness", Confidence: 0.9, Evidence: "x"}
	outcome, err := e.Process(context.Background(), "user-1", "conv-1", candidate, ProcessOptions{Now: baseTime})
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if outcome.Action != ActionRejectedVocabulary {
		t.Errorf("action = %s, want rejected_vocabulary", outcome.Action)
	}
}

func TestProcessRejectsPolicy(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	low := anxietyCandidate()
	low.Confidence = 0.5
	outcome, err := e.Process(ctx, "user-1", "conv-1", low, ProcessOptions{Now: baseTime})
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if outcome.Action != ActionRejectedPolicy {
		t.Errorf("low confidence action = %s, want rejected_policy", outcome.Action)
	}

	outcome, err = e.Process(ctx, "", "conv-1", anxietyCandidate(), ProcessOptions{Now: baseTime})
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if outcome.Action != ActionRejectedPolicy {
		t.Errorf("missing user action = %s, want rejected_policy", outcome.Action)
	}
}

func TestProcessDryRunWritesNothing(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	outcome, err := e.Process(ctx, "user-1", "conv-1", anxietyCandidate(), ProcessOptions{DryRun: true, Now: baseTime})
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if outcome.Action != ActionCreatedSignal {
		t.Errorf("dry-run action = %s, want created_signal", outcome.Action)
	}

	signals, err := st.ListSignals(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSignals error = %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("dry run wrote %d signal(s)", len(signals))
	}
}

func TestProcessDryRunPredictsEachTransition(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	process(t, e, "conv-1", baseTime)

	outcome, err := e.Process(ctx, "user-1", "conv-1", anxietyCandidate(), ProcessOptions{DryRun: true, Now: baseTime})
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if outcome.Action != ActionSkippedDoubleCount {
		t.Errorf("same-conversation dry run = %s, want skipped_double_count", outcome.Action)
	}

	outcome, err = e.Process(ctx, "user-1", "conv-2", anxietyCandidate(), ProcessOptions{DryRun: true, Now: baseTime})
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if outcome.Action != ActionPromoted {
		t.Errorf("threshold dry run = %s, want promoted", outcome.Action)
	}

	// The dry run changed nothing: the live call still promotes.
	live := process(t, e, "conv-2", baseTime.Add(time.Hour))
	if live.Action != ActionPromoted {
		t.Errorf("live action after dry runs = %s, want promoted", live.Action)
	}
}

func TestProcessTurnOrdersOutcomes(t *testing.T) {
	e, _ := newTestEngine(t)

	candidates := []types.MemoryCandidate{
		anxietyCandidate(),
		{Type: vocab.MemoryFaithStage, Value: "exploring", Confidence: 0.8, Evidence: "just exploring faith"},
		{Type: vocab.MemoryStruggleTheme, Value: "not_a_theme", Confidence: 0.9, Evidence: "x"},
	}
	outcomes, err := e.ProcessTurn(context.Background(), "user-1", "conv-1", candidates, ProcessOptions{Now: baseTime})
	if err != nil {
		t.Fatalf("ProcessTurn error = %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	if outcomes[0].Action != ActionCreatedSignal || outcomes[1].Action != ActionCreatedSignal {
		t.Errorf("first two = %s, %s", outcomes[0].Action, outcomes[1].Action)
	}
	if outcomes[2].Action != ActionRejectedVocabulary {
		t.Errorf("third = %s, want rejected_vocabulary", outcomes[2].Action)
	}
}

func TestSweepExpired(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	// Sighting eight days ago is past the seven-day TTL.
	if _, err := e.Process(ctx, "user-1", "conv-1", anxietyCandidate(), ProcessOptions{Now: baseTime.Add(-8 * 24 * time.Hour)}); err != nil {
		t.Fatalf("Process error = %v", err)
	}

	swept, err := e.SweepExpired(ctx, baseTime)
	if err != nil {
		t.Fatalf("SweepExpired error = %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	// After the sweep the next sighting starts a fresh signal.
	outcome := process(t, e, "conv-2", baseTime)
	if outcome.Action != ActionCreatedSignal {
		t.Errorf("post-sweep action = %s, want created_signal", outcome.Action)
	}
}
