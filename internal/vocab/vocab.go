// Package vocab is the closed vocabulary registry for the memory engine.
//
// Every enum-valued field that crosses a component boundary (intents,
// response modes, memory types, struggle themes, faith stages, artifact
// types, scopes) validates against this package. Nothing downstream may
// introduce a value outside these sets; model-sourced values that fail
// validation are dropped, never corrected or guessed.
package vocab

// Intent is the closed set of conversational intents a turn can carry.
type Intent string

const (
	// IntentVerseQuestion asks about a specific passage or reference.
	IntentVerseQuestion Intent = "verse_question"

	// IntentPrayerRequest asks for prayer or expresses a prayer need.
	IntentPrayerRequest Intent = "prayer_request"

	// IntentEmotionalSupport discloses distress and seeks comfort.
	IntentEmotionalSupport Intent = "emotional_support"

	// IntentTheologicalQuestion asks a doctrinal or theological question
	// not anchored to a single passage.
	IntentTheologicalQuestion Intent = "theological_question"

	// IntentPracticalGuidance asks how to apply scripture to a situation.
	IntentPracticalGuidance Intent = "practical_guidance"

	// IntentTestimonyShare relates a personal experience or answered prayer.
	IntentTestimonyShare Intent = "testimony_share"

	// IntentConversationRecall is a meta-question about something discussed
	// in a prior conversation ("what did we talk about last week?").
	IntentConversationRecall Intent = "conversation_recall"

	// IntentConversationResume continues the current thread without opening
	// a new topic. This is also the safe default when classification is
	// inconclusive.
	IntentConversationResume Intent = "conversation_resume"

	// IntentGeneralChat is smalltalk with no study or pastoral need.
	IntentGeneralChat Intent = "general_chat"
)

// DefaultIntent is the fallback when classification is inconclusive or a
// model result arrives below the low-confidence clamp.
const DefaultIntent = IntentConversationResume

// AllIntents returns every valid intent.
func AllIntents() []Intent {
	return []Intent{
		IntentVerseQuestion,
		IntentPrayerRequest,
		IntentEmotionalSupport,
		IntentTheologicalQuestion,
		IntentPracticalGuidance,
		IntentTestimonyShare,
		IntentConversationRecall,
		IntentConversationResume,
		IntentGeneralChat,
	}
}

// ValidIntent reports whether s names a registered intent.
func ValidIntent(s string) bool {
	for _, i := range AllIntents() {
		if string(i) == s {
			return true
		}
	}
	return false
}

// ResponseMode is the closed set of reply shapes the response layer accepts.
type ResponseMode string

const (
	ModeTeaching       ResponseMode = "teaching"
	ModePastoral       ResponseMode = "pastoral"
	ModeDevotional     ResponseMode = "devotional"
	ModePractical      ResponseMode = "practical"
	ModeConversational ResponseMode = "conversational"

	// ModeContinuity keeps the register of the ongoing thread. Paired with
	// DefaultIntent when classification is inconclusive.
	ModeContinuity ResponseMode = "continuity"
)

// DefaultResponseMode pairs with DefaultIntent on inconclusive turns.
const DefaultResponseMode = ModeContinuity

// AllResponseModes returns every valid response mode.
func AllResponseModes() []ResponseMode {
	return []ResponseMode{
		ModeTeaching,
		ModePastoral,
		ModeDevotional,
		ModePractical,
		ModeConversational,
		ModeContinuity,
	}
}

// ValidResponseMode reports whether s names a registered response mode.
func ValidResponseMode(s string) bool {
	for _, m := range AllResponseModes() {
		if string(m) == s {
			return true
		}
	}
	return false
}

// QuestionType refines an intent with the kind of question being asked.
// Detected independently of the intent from topical patterns.
type QuestionType string

const (
	QuestionMeaning        QuestionType = "meaning"
	QuestionContext        QuestionType = "context"
	QuestionApplication    QuestionType = "application"
	QuestionWordStudy      QuestionType = "word_study"
	QuestionCrossReference QuestionType = "cross_reference"
	QuestionObjection      QuestionType = "objection"
	QuestionComfort        QuestionType = "comfort"
	QuestionGeneral        QuestionType = "general"
)

// AllQuestionTypes returns every valid question type.
func AllQuestionTypes() []QuestionType {
	return []QuestionType{
		QuestionMeaning,
		QuestionContext,
		QuestionApplication,
		QuestionWordStudy,
		QuestionCrossReference,
		QuestionObjection,
		QuestionComfort,
		QuestionGeneral,
	}
}

// ContextKind names a kind of context the response layer can be asked to
// load before answering. TaskSpec.RequiredContext is a set of these.
type ContextKind string

const (
	ContextPassageText         ContextKind = "passage_text"
	ContextBookContext         ContextKind = "book_context"
	ContextCrossReferences     ContextKind = "cross_references"
	ContextOriginalLanguage    ContextKind = "original_language"
	ContextConversationHistory ContextKind = "conversation_history"
	ContextUserMemory          ContextKind = "user_memory"
	ContextSavedArtifacts      ContextKind = "saved_artifacts"
)

// ScriptureScope bounds how far retrieval may range around a reference.
type ScriptureScope string

const (
	ScopeVerse   ScriptureScope = "verse"
	ScopePassage ScriptureScope = "passage"
	ScopeChapter ScriptureScope = "chapter"
	ScopeBook    ScriptureScope = "book"
	ScopeCanon   ScriptureScope = "canon"
)

// LengthTarget is the coarse reply-length hint carried by a TaskSpec.
type LengthTarget string

const (
	LengthShort  LengthTarget = "short"
	LengthMedium LengthTarget = "medium"
	LengthLong   LengthTarget = "long"
)

// TemporalDirection biases retrieval toward one end of the timeline.
type TemporalDirection string

const (
	TemporalOldest TemporalDirection = "oldest"
	TemporalNewest TemporalDirection = "newest"
)

// TemporalRange bounds retrieval to a trailing window.
type TemporalRange string

const (
	RangeLastDay     TemporalRange = "last_day"
	RangeLastWeek    TemporalRange = "last_week"
	RangeLastMonth   TemporalRange = "last_month"
	RangeLast3Months TemporalRange = "last_3_months"
	RangeLastYear    TemporalRange = "last_year"
	RangeThisYear    TemporalRange = "this_year"
)
