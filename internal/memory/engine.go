// Package memory implements the signal-counting promotion state machine and
// the consolidated per-user memory state. Candidate facts arrive from the
// extractor, count up through short-lived signals, and graduate into durable
// memories once they recur across conversations. Session notes are folded
// into the global state document by the consolidator at session end.
package memory

import (
	"context"
	"fmt"
	"time"

	"forge/internal/logging"
	"forge/internal/store"
	"forge/internal/types"
	"forge/internal/vocab"
)

// Action classifies what Process did (or, in dry-run mode, would do) with a
// candidate.
type Action string

const (
	ActionCreatedSignal      Action = "created_signal"
	ActionIncremented        Action = "incremented"
	ActionSkippedDoubleCount Action = "skipped_double_count"
	ActionPromoted           Action = "promoted"
	ActionReinforced         Action = "reinforced"
	ActionRejectedVocabulary Action = "rejected_vocabulary"
	ActionRejectedPolicy     Action = "rejected_policy"
)

// Outcome reports the transition a candidate produced. Signal and Memory
// carry the resulting rows when the action touched one.
type Outcome struct {
	Action Action
	Signal *types.Signal
	Memory *types.Memory
	Reason string
}

// ProcessOptions tunes a single Process call.
type ProcessOptions struct {
	// DryRun classifies the transition without writing anything.
	DryRun bool
	// Now overrides the clock, for tests and replays.
	Now time.Time
}

// Engine drives candidates through the signal/promotion state machine.
type Engine struct {
	store *store.Store
}

// NewEngine returns an engine backed by the given store.
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Process runs one candidate through the state machine. It never returns an
// error for bad input; rejections come back as rejected_* outcomes so a turn
// is never aborted by a malformed fact. Errors are reserved for storage
// failures.
func (e *Engine) Process(ctx context.Context, userID, conversationID string, candidate types.MemoryCandidate, opts ProcessOptions) (Outcome, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if userID == "" || conversationID == "" {
		return Outcome{Action: ActionRejectedPolicy, Reason: "missing user or conversation id"}, nil
	}
	if candidate.Confidence < vocab.MinExtractionConfidence {
		return Outcome{Action: ActionRejectedPolicy, Reason: fmt.Sprintf("confidence %.2f below floor", candidate.Confidence)}, nil
	}

	value, ok := types.ValueFromCandidate(candidate)
	if !ok {
		logging.SignalDebug("Rejected out-of-vocabulary candidate %s=%q for user %s", candidate.Type, candidate.Value, userID)
		return Outcome{Action: ActionRejectedVocabulary, Reason: fmt.Sprintf("%s=%q outside vocabulary", candidate.Type, candidate.Value)}, nil
	}

	// An existing memory absorbs the sighting as reinforcement; no signal
	// is ever created alongside a memory.
	existing, err := e.store.GetMemory(ctx, userID, value)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to check memory: %w", err)
	}
	if existing != nil {
		if opts.DryRun {
			return Outcome{Action: ActionReinforced, Memory: existing}, nil
		}
		mem, err := e.store.ReinforceMemory(ctx, userID, value, now)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to reinforce memory: %w", err)
		}
		if mem == nil {
			// The memory vanished between read and write; fall through to
			// the signal path on the next sighting rather than guessing.
			return Outcome{Action: ActionSkippedDoubleCount, Reason: "memory disappeared mid-turn"}, nil
		}
		logging.Signal("Reinforced memory %s for user %s (occurrences=%d, strength=%s)", value, userID, mem.Occurrences, mem.Strength)
		logging.SignalAudit(logging.AuditMemoryReinforce, userID, conversationID, value.String(), map[string]interface{}{
			"occurrences": mem.Occurrences,
			"strength":    string(mem.Strength),
		})
		return Outcome{Action: ActionReinforced, Memory: mem}, nil
	}

	if opts.DryRun {
		return e.classifyDry(ctx, userID, conversationID, value)
	}

	res, err := e.store.RecordSignalSighting(ctx, userID, conversationID, value, now, vocab.SignalTTL)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to record sighting: %w", err)
	}
	sig := res.Signal

	if !res.Counted {
		logging.SignalDebug("Skipped double count of %s for user %s in conversation %s", value, userID, conversationID)
		logging.SignalAudit(logging.AuditSignalSkip, userID, conversationID, value.String(), map[string]interface{}{
			"count": sig.Count,
		})
		return Outcome{Action: ActionSkippedDoubleCount, Signal: &sig}, nil
	}

	if sig.Count >= vocab.PromotionThreshold {
		mem, err := e.store.PromoteSignal(ctx, sig, now)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to promote signal: %w", err)
		}
		logging.Signal("Promoted %s to memory for user %s (occurrences=%d, strength=%s)", value, userID, mem.Occurrences, mem.Strength)
		logging.SignalAudit(logging.AuditMemoryPromote, userID, conversationID, value.String(), map[string]interface{}{
			"occurrences": mem.Occurrences,
			"strength":    string(mem.Strength),
		})
		return Outcome{Action: ActionPromoted, Memory: mem}, nil
	}

	if sig.Count == 1 {
		logging.Signal("Created signal %s for user %s (expires %s)", value, userID, sig.ExpiresAt.Format(time.RFC3339))
		logging.SignalAudit(logging.AuditSignalCreate, userID, conversationID, value.String(), map[string]interface{}{
			"count": sig.Count,
		})
		return Outcome{Action: ActionCreatedSignal, Signal: &sig}, nil
	}

	logging.Signal("Incremented signal %s for user %s (count=%d)", value, userID, sig.Count)
	logging.SignalAudit(logging.AuditSignalIncrement, userID, conversationID, value.String(), map[string]interface{}{
		"count": sig.Count,
	})
	return Outcome{Action: ActionIncremented, Signal: &sig}, nil
}

// classifyDry predicts the live transition from current state without
// writing.
func (e *Engine) classifyDry(ctx context.Context, userID, conversationID string, value types.Value) (Outcome, error) {
	sig, err := e.store.GetSignal(ctx, userID, value)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to check signal: %w", err)
	}
	if sig == nil {
		return Outcome{Action: ActionCreatedSignal}, nil
	}
	if sig.LastConversationID == conversationID {
		return Outcome{Action: ActionSkippedDoubleCount, Signal: sig}, nil
	}
	if sig.Count+1 >= vocab.PromotionThreshold {
		return Outcome{Action: ActionPromoted, Signal: sig}, nil
	}
	return Outcome{Action: ActionIncremented, Signal: sig}, nil
}

// ProcessTurn runs each candidate from a turn through Process, collecting
// outcomes in order. Storage errors stop the batch.
func (e *Engine) ProcessTurn(ctx context.Context, userID, conversationID string, candidates []types.MemoryCandidate, opts ProcessOptions) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(candidates))
	for _, c := range candidates {
		outcome, err := e.Process(ctx, userID, conversationID, c, opts)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// SweepExpired purges signals and session notes whose TTL elapsed before
// now, returning the total rows removed. Time-driven cleanup, not part of
// the request path.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	signals, err := e.store.SweepExpiredSignals(ctx, now)
	if err != nil {
		return 0, err
	}
	notes, err := e.store.SweepExpiredSessionNotes(ctx, now)
	if err != nil {
		return signals, err
	}
	swept := signals + notes
	if swept > 0 {
		logging.SignalAudit(logging.AuditSignalSweep, "", "", "", map[string]interface{}{
			"purgedSignals": signals,
			"purgedNotes":   notes,
		})
	}
	return swept, nil
}
