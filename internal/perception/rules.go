package perception

import (
	"regexp"
	"strings"

	"forge/internal/safety"
	"forge/internal/vocab"
)

// =============================================================================
// RULE GROUPS
// =============================================================================
// Groups run in declaration order and the first match wins. Recall comes
// before resume because "what did we talk about last time" contains
// continuation cues; topical groups come last so explicit topics beat
// continuity. Confidence is fixed per group.

type ruleGroup struct {
	name          string
	intent        vocab.Intent
	mode          vocab.ResponseMode
	confidence    float64
	needsVerseRef bool
	patterns      []*regexp.Regexp
}

var ruleGroups = []ruleGroup{
	{
		name:       "recall",
		intent:     vocab.IntentConversationRecall,
		mode:       vocab.ModeContinuity,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)what (did|have) (we|i|you) (talk|discuss|say|study|pray)`),
			regexp.MustCompile(`(?i)\b(last|previous|earlier) (time|conversation|session|chat)\b`),
			regexp.MustCompile(`(?i)\bremind me (what|about|of)\b`),
			regexp.MustCompile(`(?i)\b(do you|can you) remember\b`),
			regexp.MustCompile(`(?i)\bwe (talked|discussed|spoke|studied) about\b`),
			regexp.MustCompile(`(?i)\bwhat was (that|the) (verse|passage|note)\b`),
		},
	},
	{
		name:       "resume",
		intent:     vocab.IntentConversationResume,
		mode:       vocab.ModeContinuity,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(ok(ay)?[,.!\s]*)?(let'?s )?(continue|keep going|carry on|pick up)\b`),
			regexp.MustCompile(`(?i)\bwhere (were|did) we\b`),
			regexp.MustCompile(`(?i)\bas (i|we) (was|were) saying\b`),
			regexp.MustCompile(`(?i)^(anyway|back to (it|that|the))\b`),
			regexp.MustCompile(`(?i)\bgo(ing)? back to (what|the|that)\b`),
		},
	},
	{
		name:       "prayer_request",
		intent:     vocab.IntentPrayerRequest,
		mode:       vocab.ModePastoral,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bpray (for|with|about|over)\b`),
			regexp.MustCompile(`(?i)^please pray\b`),
			regexp.MustCompile(`(?i)\bprayer request\b`),
			regexp.MustCompile(`(?i)\bkeep .{0,40}in (your )?prayers?\b`),
			regexp.MustCompile(`(?i)\blift .{0,30}up in prayer\b`),
			regexp.MustCompile(`(?i)\bneed prayer\b`),
		},
	},
	{
		name:       "emotional_support",
		intent:     vocab.IntentEmotionalSupport,
		mode:       vocab.ModePastoral,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi('m| am) (really )?(struggling|hurting|not ok(ay)?|falling apart)\b`),
			regexp.MustCompile(`(?i)\bi feel (so )?(alone|hopeless|lost|empty|worthless|abandoned)\b`),
			regexp.MustCompile(`(?i)\bgoing through a (hard|difficult|rough|tough|dark)\b`),
			regexp.MustCompile(`(?i)\bmy heart is (heavy|broken|aching)\b`),
			regexp.MustCompile(`(?i)\bi (can'?t|cannot) (stop crying|sleep|cope)\b`),
			regexp.MustCompile(`(?i)\bwhere is god (in|when)\b`),
		},
	},
	{
		name:       "testimony_share",
		intent:     vocab.IntentTestimonyShare,
		mode:       vocab.ModeConversational,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi (want(ed)?|would like|have) to (share|testify)\b`),
			regexp.MustCompile(`(?i)\bgod (answered|showed|provided|opened|came through)\b`),
			regexp.MustCompile(`(?i)\bpraise (god|the lord|jesus)\b`),
			regexp.MustCompile(`(?i)\btestimony\b`),
			regexp.MustCompile(`(?i)\banswered (my )?prayer\b`),
			regexp.MustCompile(`(?i)\bgod has been (so )?(good|faithful)\b`),
		},
	},
	{
		name:       "theological_question",
		intent:     vocab.IntentTheologicalQuestion,
		mode:       vocab.ModeTeaching,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(trinity|predestination|election|atonement|justification|sanctification|incarnation|eschatology)\b`),
			regexp.MustCompile(`(?i)\bwhy (does|did|would) god\b`),
			regexp.MustCompile(`(?i)\bhow can god (be|allow|permit)\b`),
			regexp.MustCompile(`(?i)\bdoctrine of\b`),
			regexp.MustCompile(`(?i)\btheolog(y|ical(ly)?|ian)\b`),
			regexp.MustCompile(`(?i)\bis it a sin (to|if)\b`),
			regexp.MustCompile(`(?i)\bdo (all|christians|we) (really )?believe\b`),
		},
	},
	{
		name:          "verse_question",
		intent:        vocab.IntentVerseQuestion,
		mode:          vocab.ModeTeaching,
		confidence:    0.9,
		needsVerseRef: true,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bwhat (does|do|did|is) .{0,60}(mean|say(ing)?|about)\b`),
			regexp.MustCompile(`(?i)\b(explain|unpack|walk me through)\b`),
			regexp.MustCompile(`(?i)\b(meaning|interpretation|significance) of\b`),
			regexp.MustCompile(`(?i)\bwhy (does|did) .{0,40}say\b`),
			regexp.MustCompile(`(?i)\?\s*$`),
		},
	},
	{
		name:       "practical_guidance",
		intent:     vocab.IntentPracticalGuidance,
		mode:       vocab.ModePractical,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bhow (do|should|can) (i|we)\b`),
			regexp.MustCompile(`(?i)\bwhat should i do\b`),
			regexp.MustCompile(`(?i)\bany advice\b`),
			regexp.MustCompile(`(?i)\bhow do i apply\b`),
			regexp.MustCompile(`(?i)\bpractical (steps|ways|advice)\b`),
			regexp.MustCompile(`(?i)\bwhat does the bible say about\b`),
		},
	},
}

// pivotPatterns suppress the continuation heuristic when a short message
// opens a new topic anyway.
var pivotPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpray\b`),
	regexp.MustCompile(`(?i)\bnew (question|topic)\b`),
	regexp.MustCompile(`(?i)\b(different|another) (question|topic|passage)\b`),
	regexp.MustCompile(`(?i)\bswitch(ing)? (gears|topics)\b`),
}

// continuationLeads are pronoun or connective openings that signal the
// message leans on the previous turn.
var continuationLeads = regexp.MustCompile(`(?i)^(it|that|this|those|these|he|she|they|and|but|so|also|what about|how about|why|ok(ay)?|yes|no|hmm)\b`)

const shortMessageLen = 25

// classifyByRules runs the ordered groups and the continuation heuristic.
// Returns nil when no rule fires.
func classifyByRules(message string, convCtx Context, hasVerseRef bool) *IntentResult {
	for _, group := range ruleGroups {
		if group.needsVerseRef && !hasVerseRef {
			continue
		}
		for _, pattern := range group.patterns {
			if pattern.MatchString(message) {
				return &IntentResult{
					Intent:       group.intent,
					ResponseMode: group.mode,
					Confidence:   group.confidence,
					Signals:      []string{"rule:" + group.name},
					Source:       SourceRules,
				}
			}
		}
	}

	// Continuation heuristic: short or pronoun-led messages in an ongoing
	// conversation continue it, unless the message pivots to a new topic.
	if !convCtx.IsFirstMessage && len(convCtx.ConversationHistory) > 0 {
		trimmed := strings.TrimSpace(message)
		if len(trimmed) < shortMessageLen || continuationLeads.MatchString(trimmed) {
			if !matchesAny(trimmed, pivotPatterns) && !hasVerseRef {
				return &IntentResult{
					Intent:       vocab.IntentConversationResume,
					ResponseMode: vocab.ModeContinuity,
					Confidence:   0.85,
					Signals:      []string{"rule:continuation"},
					Source:       SourceRules,
				}
			}
		}
	}

	return nil
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// =============================================================================
// FLAG DETECTION
// =============================================================================

var firstPersonLead = regexp.MustCompile(`(?i)\b(i|i'm|i've|my|we|our)\b`)

var situationalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy (job|boss|work|wife|husband|marriage|kids?|children|family|mom|dad|mother|father|son|daughter|church|pastor|friend)\b`),
	regexp.MustCompile(`(?i)\b(at work|at home|at church|in my life|this week|right now|lately|these days)\b`),
	regexp.MustCompile(`(?i)\bi('ve| have) been\b`),
}

// detectFlags computes the secondary observations for a message.
func detectFlags(message string, convCtx Context) Flags {
	flags := Flags{}

	if _, ok := DetectVerseRef(message); ok {
		flags.HasVerseRef = true
	}
	if convCtx.VerseReference != "" {
		flags.HasVerseRef = true
	}

	if firstPersonLead.MatchString(message) && safety.IsPastoralTopic(message) {
		flags.SelfDisclosure = true
	}

	flags.Situational = matchesAny(message, situationalPatterns)
	flags.Temporal = DetectTemporal(message)

	return flags
}
