package perception

import (
	"testing"

	"forge/internal/vocab"
)

func ongoingContext() Context {
	return Context{
		ConversationHistory: []Turn{
			{Role: "user", Content: "Can we study the parable of the sower?"},
			{Role: "assistant", Content: "Gladly. Matthew 13 gives us the fullest telling."},
		},
	}
}

func TestRuleGroupsFirstMatchWins(t *testing.T) {
	tests := []struct {
		message    string
		intent     vocab.Intent
		mode       vocab.ResponseMode
		confidence float64
	}{
		{"What did we talk about last week?", vocab.IntentConversationRecall, vocab.ModeContinuity, 0.9},
		{"ok let's continue where we left off", vocab.IntentConversationResume, vocab.ModeContinuity, 0.85},
		{"Please pray for my mom, she has an interview tomorrow", vocab.IntentPrayerRequest, vocab.ModePastoral, 0.9},
		{"I'm really struggling with anxiety lately", vocab.IntentEmotionalSupport, vocab.ModePastoral, 0.85},
		{"I wanted to share how God answered my prayer!", vocab.IntentTestimonyShare, vocab.ModeConversational, 0.85},
		{"Can you explain the doctrine of justification?", vocab.IntentTheologicalQuestion, vocab.ModeTeaching, 0.85},
		{"What does John 3:16 mean?", vocab.IntentVerseQuestion, vocab.ModeTeaching, 0.9},
		{"What does the Bible say about money?", vocab.IntentPracticalGuidance, vocab.ModePractical, 0.85},
	}

	for _, tt := range tests {
		hasRef, _ := refFlag(tt.message)
		result := classifyByRules(tt.message, ongoingContext(), hasRef)
		if result == nil {
			t.Errorf("classifyByRules(%q) = nil, want %s", tt.message, tt.intent)
			continue
		}
		if result.Intent != tt.intent {
			t.Errorf("classifyByRules(%q) intent = %s, want %s (signals %v)", tt.message, result.Intent, tt.intent, result.Signals)
		}
		if result.ResponseMode != tt.mode {
			t.Errorf("classifyByRules(%q) mode = %s, want %s", tt.message, result.ResponseMode, tt.mode)
		}
		if result.Confidence != tt.confidence {
			t.Errorf("classifyByRules(%q) confidence = %v, want %v", tt.message, result.Confidence, tt.confidence)
		}
		if result.Source != SourceRules {
			t.Errorf("classifyByRules(%q) source = %s, want rules", tt.message, result.Source)
		}
	}
}

func refFlag(message string) (bool, string) {
	ref, ok := DetectVerseRef(message)
	return ok, ref
}

func TestVerseQuestionRequiresReference(t *testing.T) {
	// Without a resolvable reference the verse group must not fire; the
	// message falls through to the practical group here.
	result := classifyByRules("What does the Bible say about fasting?", ongoingContext(), false)
	if result == nil {
		t.Fatal("Expected a rule match")
	}
	if result.Intent == vocab.IntentVerseQuestion {
		t.Error("verse_question fired without a verse reference")
	}
}

func TestContinuationHeuristic(t *testing.T) {
	// Short follow-up in an ongoing conversation continues it.
	result := classifyByRules("and the thorny soil?", ongoingContext(), false)
	if result == nil {
		t.Fatal("Expected continuation match")
	}
	if result.Intent != vocab.IntentConversationResume {
		t.Errorf("Expected conversation_resume, got %s", result.Intent)
	}
	if result.Signals[0] != "rule:continuation" {
		t.Errorf("Expected continuation signal, got %v", result.Signals)
	}
}

func TestContinuationSkipsFirstMessage(t *testing.T) {
	first := Context{IsFirstMessage: true}
	if result := classifyByRules("and another thing", first, false); result != nil {
		t.Errorf("Continuation fired on first message: %+v", result)
	}
}

func TestContinuationPivotOverride(t *testing.T) {
	// A short message that opens a new topic must not be absorbed as a
	// continuation; it falls through to the model tier.
	if result := classifyByRules("new topic: fasting", ongoingContext(), false); result != nil {
		t.Errorf("Pivot message absorbed as continuation: %+v", result)
	}

	// A verse reference is also a pivot.
	if result := classifyByRules("ok Psalm 51", ongoingContext(), true); result != nil {
		t.Errorf("Verse pivot absorbed as continuation: %+v", result)
	}
}

func TestDetectFlags(t *testing.T) {
	flags := detectFlags("I'm so anxious about my job right now", Context{})
	if !flags.SelfDisclosure {
		t.Error("Expected selfDisclosure flag")
	}
	if !flags.Situational {
		t.Error("Expected situational flag")
	}
	if flags.HasVerseRef {
		t.Error("Unexpected verse ref flag")
	}

	flags = detectFlags("What does Romans 12:2 mean?", Context{})
	if !flags.HasVerseRef {
		t.Error("Expected verse ref flag")
	}
	if flags.SelfDisclosure {
		t.Error("Unexpected selfDisclosure flag")
	}

	// Reference supplied by the reading context counts too.
	flags = detectFlags("what does it mean?", Context{VerseReference: "John 1:1"})
	if !flags.HasVerseRef {
		t.Error("Expected verse ref flag from context")
	}

	flags = detectFlags("remind me what we studied last month", Context{})
	if flags.Temporal == nil {
		t.Fatal("Expected temporal modifier")
	}
	if flags.Temporal.Range != vocab.RangeLastMonth {
		t.Errorf("Expected last_month range, got %s", flags.Temporal.Range)
	}
}
