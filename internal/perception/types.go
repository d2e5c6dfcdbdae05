// Package perception turns a raw user message into a typed intent
// classification and a task spec the retrieval and response layers act on.
// Classification runs ordered rule groups first and falls back to the
// completion model only when no rule fires; both paths emit values from the
// closed vocabulary and degrade to a safe default instead of failing.
package perception

import (
	"forge/internal/vocab"
)

// Classification sources recorded in IntentResult.Source.
const (
	SourceRules = "rules"
	SourceModel = "model"
)

// Context carries the per-turn conversational context into classification.
type Context struct {
	VerseReference      string // reference the user is currently reading, if any
	ConversationHistory []Turn
	IsFirstMessage      bool
}

// Turn is one prior message in the conversation.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Flags are secondary observations about the message, attached to the
// classification for downstream consumers.
type Flags struct {
	SelfDisclosure bool
	Situational    bool
	HasVerseRef    bool
	Temporal       *TemporalModifier
}

// TemporalModifier biases retrieval toward a time direction or window.
type TemporalModifier struct {
	Direction vocab.TemporalDirection
	Range     vocab.TemporalRange
}

// IntentResult is the classification of a single user message. Produced
// fresh per turn, never persisted.
type IntentResult struct {
	Intent       vocab.Intent
	ResponseMode vocab.ResponseMode
	Confidence   float64
	Signals      []string // diagnostic provenance, e.g. "rule:prayer_request"
	Source       string   // SourceRules or SourceModel
	Flags        Flags
}

// RetrievalKnobs tune what the retrieval layer loads for this turn.
type RetrievalKnobs struct {
	IncludeMemory    bool
	IncludeArtifacts bool
	ScriptureScope   vocab.ScriptureScope
	CrossRefCount    int
	ArtifactLimit    int
	Temporal         *TemporalModifier
}

// TaskSpec is the derived retrieval/response plan for a turn. Derived from
// an IntentResult and consumed immediately; it is never stored.
type TaskSpec struct {
	QuestionType            vocab.QuestionType
	RequiredContext         []vocab.ContextKind
	ResponseMode            vocab.ResponseMode
	ScriptureScope          vocab.ScriptureScope
	LengthTarget            vocab.LengthTarget
	NeedsClarifyingQuestion bool
	Knobs                   RetrievalKnobs
}

// HasContext reports whether the task requires the given context kind.
func (s TaskSpec) HasContext(kind vocab.ContextKind) bool {
	for _, k := range s.RequiredContext {
		if k == kind {
			return true
		}
	}
	return false
}
