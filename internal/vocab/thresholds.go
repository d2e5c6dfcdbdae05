package vocab

import "time"

// Contract constants. These are part of the frozen surface callers depend
// on, not per-call tunables: changing one changes observable behavior for
// every consumer.
const (
	// LowConfidenceClamp is the boundary below which a model-sourced
	// classification is discarded in favor of the default intent/mode pair.
	LowConfidenceClamp = 0.55

	// MinExtractionConfidence is the floor below which a memory candidate is
	// dropped rather than counted.
	MinExtractionConfidence = 0.7

	// PromotionThreshold is the sighting count at which a signal becomes a
	// durable memory.
	PromotionThreshold = 2

	// SignalTTL is how long a signal survives without a fresh sighting
	// before the cleanup sweep purges it.
	SignalTTL = 7 * 24 * time.Hour

	// MaxCandidatesPerTurn caps how many memory candidates a single turn may
	// yield, regardless of what the extraction model proposes.
	MaxCandidatesPerTurn = 2

	// StrengthModerateAt and StrengthStrongAt are the occurrence breakpoints
	// for memory strength grading.
	StrengthModerateAt = 4
	StrengthStrongAt   = 7
)

// State document limits for the persisted user memory state
// (schema forge.user_memory_state.v1). Consumers coerce out-of-bounds
// fields to these limits rather than rejecting whole documents.
const (
	// MaxNoteTextLen caps a single memory note's text.
	MaxNoteTextLen = 400

	// MaxKeywordLen caps a single normalized keyword.
	MaxKeywordLen = 24

	// MaxKeywordsPerNote caps how many keywords one note may carry.
	MaxKeywordsPerNote = 8

	// MaxGlobalNotes caps the global note list; oldest entries are evicted
	// first when the cap is exceeded.
	MaxGlobalNotes = 200
)

// MemoryStateSchemaVersion tags the persisted user memory state document.
const MemoryStateSchemaVersion = "forge.user_memory_state.v1"
