package perception

import (
	"context"
	"strings"

	"forge/internal/llm"
	"forge/internal/logging"
	"forge/internal/vocab"
)

// Classifier is the two-tier intent classifier: ordered rule groups first,
// completion-model fallback second. A nil client disables the fallback and
// unmatched messages degrade to the default intent.
type Classifier struct {
	client llm.Client
}

// NewClassifier creates a classifier. client may be nil for rules-only
// operation.
func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{client: client}
}

// Classify determines the intent of a user message. It never returns an
// error; every failure degrades to the default intent with a diagnostic
// signal.
func (c *Classifier) Classify(ctx context.Context, message string, convCtx Context) IntentResult {
	timer := logging.StartTimer(logging.CategoryPerception, "classify")
	defer timer.Stop()

	flags := detectFlags(message, convCtx)

	if result := classifyByRules(message, convCtx, flags.HasVerseRef); result != nil {
		result.Flags = flags
		logging.Perception("classified intent=%s mode=%s conf=%.2f source=%s signal=%s",
			result.Intent, result.ResponseMode, result.Confidence, result.Source, strings.Join(result.Signals, ","))
		return *result
	}

	if len(strings.TrimSpace(message)) < 3 {
		result := IntentResult{
			Intent:       vocab.DefaultIntent,
			ResponseMode: vocab.DefaultResponseMode,
			Confidence:   0.5,
			Signals:      []string{"rule:too_short"},
			Source:       SourceRules,
			Flags:        flags,
		}
		return result
	}

	result := c.classifyWithModel(ctx, message, convCtx)
	result.Flags = flags
	logging.Perception("classified intent=%s mode=%s conf=%.2f source=%s signal=%s",
		result.Intent, result.ResponseMode, result.Confidence, result.Source, strings.Join(result.Signals, ","))
	return result
}

// =============================================================================
// INTENT PROFILES
// =============================================================================

// intentProfile is the base retrieval/response shape for an intent before
// question-type overlays.
type intentProfile struct {
	mode     vocab.ResponseMode
	contexts []vocab.ContextKind
	knobs    RetrievalKnobs
}

var intentProfiles = map[vocab.Intent]intentProfile{
	vocab.IntentVerseQuestion: {
		mode:     vocab.ModeTeaching,
		contexts: []vocab.ContextKind{vocab.ContextPassageText, vocab.ContextBookContext},
		knobs:    RetrievalKnobs{ScriptureScope: vocab.ScopePassage, CrossRefCount: 2},
	},
	vocab.IntentPrayerRequest: {
		mode:     vocab.ModePastoral,
		contexts: []vocab.ContextKind{vocab.ContextConversationHistory, vocab.ContextUserMemory},
		knobs:    RetrievalKnobs{IncludeMemory: true, ScriptureScope: vocab.ScopeCanon},
	},
	vocab.IntentEmotionalSupport: {
		mode:     vocab.ModePastoral,
		contexts: []vocab.ContextKind{vocab.ContextConversationHistory, vocab.ContextUserMemory},
		knobs:    RetrievalKnobs{IncludeMemory: true, IncludeArtifacts: true, ScriptureScope: vocab.ScopeCanon, ArtifactLimit: 3},
	},
	vocab.IntentTheologicalQuestion: {
		mode:     vocab.ModeTeaching,
		contexts: []vocab.ContextKind{vocab.ContextCrossReferences, vocab.ContextBookContext},
		knobs:    RetrievalKnobs{ScriptureScope: vocab.ScopeCanon, CrossRefCount: 3},
	},
	vocab.IntentPracticalGuidance: {
		mode:     vocab.ModePractical,
		contexts: []vocab.ContextKind{vocab.ContextConversationHistory, vocab.ContextUserMemory},
		knobs:    RetrievalKnobs{IncludeMemory: true, IncludeArtifacts: true, ScriptureScope: vocab.ScopePassage, ArtifactLimit: 3},
	},
	vocab.IntentTestimonyShare: {
		mode:     vocab.ModeConversational,
		contexts: []vocab.ContextKind{vocab.ContextConversationHistory},
		knobs:    RetrievalKnobs{ScriptureScope: vocab.ScopePassage},
	},
	vocab.IntentConversationRecall: {
		mode:     vocab.ModeContinuity,
		contexts: []vocab.ContextKind{vocab.ContextConversationHistory, vocab.ContextSavedArtifacts},
		knobs:    RetrievalKnobs{IncludeArtifacts: true, ScriptureScope: vocab.ScopePassage, ArtifactLimit: 5},
	},
	vocab.IntentConversationResume: {
		mode:     vocab.ModeContinuity,
		contexts: []vocab.ContextKind{vocab.ContextConversationHistory},
		knobs:    RetrievalKnobs{ScriptureScope: vocab.ScopePassage},
	},
	vocab.IntentGeneralChat: {
		mode:     vocab.ModeConversational,
		contexts: []vocab.ContextKind{vocab.ContextConversationHistory},
		knobs:    RetrievalKnobs{ScriptureScope: vocab.ScopePassage},
	},
}
