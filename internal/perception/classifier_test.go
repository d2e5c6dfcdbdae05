package perception

import (
	"context"
	"errors"
	"strings"
	"testing"

	"forge/internal/vocab"
)

// fakeClient scripts the completion model for classifier tests.
type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestClassifyModelFallback(t *testing.T) {
	fake := &fakeClient{response: `{"intent": "general_chat", "responseMode": "conversational", "confidence": 0.8}`}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "Tell me about your features", Context{IsFirstMessage: true})

	if result.Intent != vocab.IntentGeneralChat {
		t.Errorf("Expected general_chat, got %s", result.Intent)
	}
	if result.ResponseMode != vocab.ModeConversational {
		t.Errorf("Expected conversational, got %s", result.ResponseMode)
	}
	if result.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %v", result.Confidence)
	}
	if result.Source != SourceModel {
		t.Errorf("Expected model source, got %s", result.Source)
	}
	if fake.calls != 1 {
		t.Errorf("Expected 1 model call, got %d", fake.calls)
	}
}

func TestClassifyLowConfidenceDowngrade(t *testing.T) {
	fake := &fakeClient{response: `{"intent": "theological_question", "responseMode": "teaching", "confidence": 0.4}`}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "Tell me about your features", Context{IsFirstMessage: true})

	if result.Intent != vocab.DefaultIntent {
		t.Errorf("Expected default intent, got %s", result.Intent)
	}
	if result.ResponseMode != vocab.DefaultResponseMode {
		t.Errorf("Expected default mode, got %s", result.ResponseMode)
	}
	if !hasSignal(result.Signals, "low_confidence_downgrade") {
		t.Errorf("Expected downgrade signal, got %v", result.Signals)
	}
}

func TestClassifyInvalidIntentRejected(t *testing.T) {
	fake := &fakeClient{response: `{"intent": "pizza_order", "responseMode": "conversational", "confidence": 0.9}`}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "Tell me about your features", Context{IsFirstMessage: true})

	if result.Intent != vocab.DefaultIntent {
		t.Errorf("Invalid intent not rejected, got %s", result.Intent)
	}
	if !hasSignalPrefix(result.Signals, "invalid_intent") {
		t.Errorf("Expected invalid_intent signal, got %v", result.Signals)
	}
}

func TestClassifyConfidenceClamped(t *testing.T) {
	fake := &fakeClient{response: `{"intent": "theological_question", "responseMode": "teaching", "confidence": 1.7}`}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "Tell me about your features", Context{IsFirstMessage: true})

	if result.Confidence != 1.0 {
		t.Errorf("Expected confidence clamped to 1.0, got %v", result.Confidence)
	}
	if result.Intent != vocab.IntentTheologicalQuestion {
		t.Errorf("Expected theological_question, got %s", result.Intent)
	}
}

func TestClassifyProviderError(t *testing.T) {
	fake := &fakeClient{err: errors.New("connection refused")}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "Tell me about your features", Context{IsFirstMessage: true})

	if result.Intent != vocab.DefaultIntent {
		t.Errorf("Expected default intent on provider error, got %s", result.Intent)
	}
	if !hasSignalPrefix(result.Signals, "provider_error") {
		t.Errorf("Expected provider_error signal, got %v", result.Signals)
	}
}

func TestClassifyUnparseableResponse(t *testing.T) {
	fake := &fakeClient{response: "I think this is probably general chat."}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "Tell me about your features", Context{IsFirstMessage: true})

	if result.Intent != vocab.DefaultIntent {
		t.Errorf("Expected default intent on parse failure, got %s", result.Intent)
	}
	if !hasSignalPrefix(result.Signals, "parse_error") {
		t.Errorf("Expected parse_error signal, got %v", result.Signals)
	}
}

func TestClassifyShortMessageSkipsModel(t *testing.T) {
	fake := &fakeClient{response: `{"intent": "general_chat", "responseMode": "conversational", "confidence": 0.9}`}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "hi", Context{IsFirstMessage: true})

	if result.Source != SourceRules {
		t.Errorf("Expected rules source, got %s", result.Source)
	}
	if !hasSignal(result.Signals, "rule:too_short") {
		t.Errorf("Expected too_short signal, got %v", result.Signals)
	}
	if fake.calls != 0 {
		t.Errorf("Model consulted for short message: %d calls", fake.calls)
	}
}

func TestClassifyRulesBeatModel(t *testing.T) {
	fake := &fakeClient{response: `{"intent": "general_chat", "responseMode": "conversational", "confidence": 0.95}`}
	c := NewClassifier(fake)

	result := c.Classify(context.Background(), "please pray for me", Context{IsFirstMessage: true})

	if result.Intent != vocab.IntentPrayerRequest {
		t.Errorf("Expected prayer_request from rules, got %s", result.Intent)
	}
	if result.Source != SourceRules {
		t.Errorf("Expected rules source, got %s", result.Source)
	}
	if fake.calls != 0 {
		t.Errorf("Model consulted despite rule match: %d calls", fake.calls)
	}
}

func TestClassifyNilClient(t *testing.T) {
	c := NewClassifier(nil)

	result := c.Classify(context.Background(), "Tell me about your features", Context{IsFirstMessage: true})

	if result.Intent != vocab.DefaultIntent {
		t.Errorf("Expected default intent without a model, got %s", result.Intent)
	}
	if !hasSignal(result.Signals, "no_model_configured") {
		t.Errorf("Expected no_model_configured signal, got %v", result.Signals)
	}
}

func hasSignal(signals []string, want string) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}

func hasSignalPrefix(signals []string, prefix string) bool {
	for _, s := range signals {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
