package perception

import (
	"regexp"

	"forge/internal/vocab"
)

// =============================================================================
// TASK SPEC DERIVATION
// =============================================================================

// distressPatterns trigger the pastoral override regardless of what the
// question-type profile says. Response shaping only; the safety filter
// separately keeps crisis specifics out of memory.
var distressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(want to die|kill myself|end it all|suicid\w*|self[- ]harm|hurt(ing)? myself)\b`),
	regexp.MustCompile(`(?i)\b(no reason to live|better off without me|can'?t go on)\b`),
	regexp.MustCompile(`(?i)\bi('m| am) (in crisis|desperate|at the end|falling apart)\b`),
	regexp.MustCompile(`(?i)\b(feel(ing)? (completely )?hopeless|giving up on (life|everything))\b`),
}

// vagueRefPatterns mark messages that point at a verse without naming one,
// which need a clarifying question before retrieval can run.
var vagueRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bth(is|at|e) (verse|passage|chapter|scripture)\b`),
}

// BuildTaskSpec derives the retrieval/response plan from a classification.
// Required context is the union of the intent's base set, the question
// type's additions, and passage_text when a verse reference is present.
func BuildTaskSpec(result IntentResult, message string, convCtx Context) TaskSpec {
	profile, ok := intentProfiles[result.Intent]
	if !ok {
		profile = intentProfiles[vocab.DefaultIntent]
	}

	questionType := DetectQuestionType(message)
	qp := questionProfiles[questionType]

	spec := TaskSpec{
		QuestionType: questionType,
		ResponseMode: profile.mode,
		Knobs:        profile.knobs,
	}

	// Required-context union, preserving first-seen order.
	seen := make(map[vocab.ContextKind]bool)
	addContext := func(kinds ...vocab.ContextKind) {
		for _, k := range kinds {
			if !seen[k] {
				seen[k] = true
				spec.RequiredContext = append(spec.RequiredContext, k)
			}
		}
	}
	addContext(profile.contexts...)
	addContext(qp.addContext...)
	if result.Flags.HasVerseRef {
		addContext(vocab.ContextPassageText)
	}

	// Question-type overlays.
	if questionType != vocab.QuestionGeneral && qp.mode != "" {
		spec.ResponseMode = qp.mode
	}
	if qp.scope != "" {
		spec.Knobs.ScriptureScope = qp.scope
	}
	if qp.crossRefs > 0 {
		spec.Knobs.CrossRefCount = qp.crossRefs
	}
	if qp.wantsMemory {
		spec.Knobs.IncludeMemory = true
		spec.Knobs.IncludeArtifacts = true
		addContext(vocab.ContextUserMemory)
	}

	// Distress overrides every mode decision.
	if matchesAny(message, distressPatterns) {
		spec.ResponseMode = vocab.ModePastoral
		spec.Knobs.IncludeMemory = true
		addContext(vocab.ContextUserMemory)
	}

	spec.ScriptureScope = spec.Knobs.ScriptureScope
	spec.LengthTarget = lengthForMode(spec.ResponseMode)
	spec.Knobs.Temporal = result.Flags.Temporal

	// A verse-shaped question with no resolvable reference needs the user
	// to name the passage first.
	if !result.Flags.HasVerseRef && matchesAny(message, vagueRefPatterns) {
		spec.NeedsClarifyingQuestion = true
	}

	if spec.Knobs.ArtifactLimit == 0 && spec.Knobs.IncludeArtifacts {
		spec.Knobs.ArtifactLimit = 3
	}

	return spec
}

// lengthForMode pairs each response register with a reply-length target.
func lengthForMode(mode vocab.ResponseMode) vocab.LengthTarget {
	switch mode {
	case vocab.ModeTeaching:
		return vocab.LengthLong
	case vocab.ModePastoral, vocab.ModePractical, vocab.ModeDevotional:
		return vocab.LengthMedium
	default:
		return vocab.LengthShort
	}
}
