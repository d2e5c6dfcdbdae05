package perception

import (
	"regexp"

	"forge/internal/vocab"
)

// =============================================================================
// QUESTION TYPE DETECTION
// =============================================================================
// Question type is orthogonal to intent: a verse question can be a meaning
// question, a word study, or an objection. Patterns run in order; first
// match wins; no match means general.

var questionTypePatterns = []struct {
	qt       vocab.QuestionType
	patterns []*regexp.Regexp
}{
	{vocab.QuestionWordStudy, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(greek|hebrew|aramaic)\b`),
		regexp.MustCompile(`(?i)\boriginal (language|word|text)\b`),
		regexp.MustCompile(`(?i)\bword study\b`),
		regexp.MustCompile(`(?i)\b(translated|translation) (as|of|from)\b`),
		regexp.MustCompile(`(?i)\bliteral(ly)? (mean|translat)`),
	}},
	{vocab.QuestionCrossReference, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcross[- ]?references?\b`),
		regexp.MustCompile(`(?i)\bother (verses|passages|scriptures|places)\b`),
		regexp.MustCompile(`(?i)\bwhere else\b`),
		regexp.MustCompile(`(?i)\brelated (verses|passages)\b`),
		regexp.MustCompile(`(?i)\bparallel (passage|account)s?\b`),
		regexp.MustCompile(`(?i)\bconnects? (to|with) (other|another)\b`),
	}},
	{vocab.QuestionObjection, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcontradict(ion|s|ory)?\b`),
		regexp.MustCompile(`(?i)\bhow can (this|that|it|both) be\b`),
		regexp.MustCompile(`(?i)\bdoesn'?t (this|that|it) (make sense|add up|conflict)\b`),
		regexp.MustCompile(`(?i)\bskeptic(al|s)?\b`),
		regexp.MustCompile(`(?i)\bif god .{0,40}(why|then how)\b`),
		regexp.MustCompile(`(?i)\bseems (unfair|wrong|harsh|cruel)\b`),
	}},
	{vocab.QuestionContext, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(historical|cultural|original) (context|setting|background)\b`),
		regexp.MustCompile(`(?i)\bwho wrote\b`),
		regexp.MustCompile(`(?i)\bwhen was .{0,40}written\b`),
		regexp.MustCompile(`(?i)\bbackground (of|on|to)\b`),
		regexp.MustCompile(`(?i)\b(original )?audience\b`),
		regexp.MustCompile(`(?i)\bwhat was happening (at|when|in)\b`),
	}},
	{vocab.QuestionApplication, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bapply\b`),
		regexp.MustCompile(`(?i)\bapplication\b`),
		regexp.MustCompile(`(?i)\bhow (do|can|should) (i|we) (live|practice|respond|obey)\b`),
		regexp.MustCompile(`(?i)\bin my (life|situation|marriage|work)\b`),
		regexp.MustCompile(`(?i)\bwhat does (this|that|it) mean for (me|us|my)\b`),
	}},
	{vocab.QuestionComfort, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcomfort(ing)?\b`),
		regexp.MustCompile(`(?i)\bencourag(e|ement|ing)\b`),
		regexp.MustCompile(`(?i)\bverses? (for|about|on) (when|anxiety|fear|grief|loss|worry)\b`),
		regexp.MustCompile(`(?i)\bhelp me (through|cope|get through)\b`),
		regexp.MustCompile(`(?i)\bneed (some )?hope\b`),
	}},
	{vocab.QuestionMeaning, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bwhat (does|do|did) .{0,60}mean\b`),
		regexp.MustCompile(`(?i)\bmeaning of\b`),
		regexp.MustCompile(`(?i)\binterpret(ation)?\b`),
		regexp.MustCompile(`(?i)\bwhat is .{0,40}(saying|teaching|about)\b`),
		regexp.MustCompile(`(?i)\bexplain\b`),
	}},
}

// DetectQuestionType classifies the kind of question independently of the
// intent.
func DetectQuestionType(message string) vocab.QuestionType {
	for _, entry := range questionTypePatterns {
		for _, re := range entry.patterns {
			if re.MatchString(message) {
				return entry.qt
			}
		}
	}
	return vocab.QuestionGeneral
}

// =============================================================================
// QUESTION TYPE PROFILES
// =============================================================================

// questionProfile describes how a question type reshapes the TaskSpec:
// a default response mode, extra required context, and knob overrides
// applied on top of the intent's base profile.
type questionProfile struct {
	mode        vocab.ResponseMode
	addContext  []vocab.ContextKind
	scope       vocab.ScriptureScope // empty means keep the intent scope
	crossRefs   int                  // 0 means keep the intent count
	wantsMemory bool                 // enables memory and artifact retrieval
}

var questionProfiles = map[vocab.QuestionType]questionProfile{
	vocab.QuestionMeaning: {
		mode:       vocab.ModeTeaching,
		addContext: []vocab.ContextKind{vocab.ContextBookContext},
		scope:      vocab.ScopePassage,
	},
	vocab.QuestionContext: {
		mode:       vocab.ModeTeaching,
		addContext: []vocab.ContextKind{vocab.ContextBookContext},
		scope:      vocab.ScopeChapter,
	},
	vocab.QuestionApplication: {
		mode:        vocab.ModePractical,
		addContext:  []vocab.ContextKind{vocab.ContextUserMemory, vocab.ContextSavedArtifacts},
		scope:       vocab.ScopePassage,
		wantsMemory: true,
	},
	vocab.QuestionWordStudy: {
		mode:       vocab.ModeTeaching,
		addContext: []vocab.ContextKind{vocab.ContextOriginalLanguage},
		scope:      vocab.ScopeVerse,
	},
	vocab.QuestionCrossReference: {
		mode:       vocab.ModeTeaching,
		addContext: []vocab.ContextKind{vocab.ContextCrossReferences},
		scope:      vocab.ScopeCanon,
		crossRefs:  5,
	},
	vocab.QuestionObjection: {
		mode:       vocab.ModeTeaching,
		addContext: []vocab.ContextKind{vocab.ContextCrossReferences, vocab.ContextBookContext},
		scope:      vocab.ScopeBook,
	},
	vocab.QuestionComfort: {
		mode:        vocab.ModePastoral,
		addContext:  []vocab.ContextKind{vocab.ContextUserMemory},
		scope:       vocab.ScopeCanon,
		wantsMemory: true,
	},
	vocab.QuestionGeneral: {},
}
