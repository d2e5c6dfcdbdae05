package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"forge/internal/llm"
	"forge/internal/logging"
	"forge/internal/vocab"
)

// =============================================================================
// MODEL FALLBACK
// =============================================================================

const classifySystemPrompt = `You classify one user message for a Bible-study and prayer assistant.

Return ONLY a JSON object, no prose:
{"intent": "<intent>", "responseMode": "<mode>", "confidence": <0.0-1.0>}

intent must be exactly one of:
verse_question, prayer_request, emotional_support, theological_question, practical_guidance, testimony_share, conversation_recall, conversation_resume, general_chat

responseMode must be exactly one of:
teaching, pastoral, devotional, practical, conversational, continuity

Rules:
- Classify the message itself, not what you would reply.
- prayer_request only when the user asks for prayer or names a prayer need.
- emotional_support when the user discloses distress and seeks comfort.
- conversation_recall for questions about earlier conversations.
- conversation_resume for continuations of the current thread.
- confidence reflects how clearly the message fits the intent.`

// modelClassification is the JSON shape the model must return.
type modelClassification struct {
	Intent       string  `json:"intent"`
	ResponseMode string  `json:"responseMode"`
	Confidence   float64 `json:"confidence"`
}

// classifyWithModel asks the completion model to classify the message.
// Every failure path returns the default intent with a diagnostic signal;
// this function never returns an error.
func (c *Classifier) classifyWithModel(ctx context.Context, message string, convCtx Context) IntentResult {
	fallback := func(signal string) IntentResult {
		return IntentResult{
			Intent:       vocab.DefaultIntent,
			ResponseMode: vocab.DefaultResponseMode,
			Confidence:   0.5,
			Signals:      []string{signal},
			Source:       SourceModel,
		}
	}

	if c.client == nil {
		return fallback("no_model_configured")
	}

	response, err := c.client.CompleteWithSystem(ctx, classifySystemPrompt, buildClassifyPrompt(message, convCtx.ConversationHistory))
	if err != nil {
		logging.PerceptionError("model classification failed: %v", err)
		return fallback(fmt.Sprintf("provider_error: %v", err))
	}

	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		logging.PerceptionError("model returned no JSON object")
		return fallback("parse_error: no JSON in response")
	}

	var mc modelClassification
	if err := json.Unmarshal([]byte(jsonStr), &mc); err != nil {
		logging.PerceptionError("model JSON parse failed: %v", err)
		return fallback(fmt.Sprintf("parse_error: %v", err))
	}

	result := IntentResult{
		Intent:       vocab.Intent(mc.Intent),
		ResponseMode: vocab.ResponseMode(mc.ResponseMode),
		Confidence:   clamp01(mc.Confidence),
		Source:       SourceModel,
	}

	// Values outside the closed vocabulary are clamped to defaults, never
	// corrected or guessed.
	if !vocab.ValidIntent(mc.Intent) {
		result.Intent = vocab.DefaultIntent
		result.ResponseMode = vocab.DefaultResponseMode
		result.Signals = append(result.Signals, fmt.Sprintf("invalid_intent: %q", mc.Intent))
	}
	if !vocab.ValidResponseMode(mc.ResponseMode) {
		result.ResponseMode = defaultModeForIntent(result.Intent)
		result.Signals = append(result.Signals, fmt.Sprintf("invalid_mode: %q", mc.ResponseMode))
	}

	// Low-confidence model answers are not trusted with a topical intent.
	if result.Confidence < vocab.LowConfidenceClamp {
		result.Intent = vocab.DefaultIntent
		result.ResponseMode = vocab.DefaultResponseMode
		result.Signals = append(result.Signals, "low_confidence_downgrade")
	}

	if len(result.Signals) == 0 {
		result.Signals = []string{"model"}
	}

	return result
}

// buildClassifyPrompt includes a short window of history so continuations
// and pivots are visible to the model.
func buildClassifyPrompt(message string, history []Turn) string {
	var sb strings.Builder

	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		start := 0
		if len(history) > 5 {
			start = len(history) - 5
		}
		for _, turn := range history[start:] {
			sb.WriteString(turn.Role)
			sb.WriteString(": ")
			sb.WriteString(turn.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Message to classify:\n")
	sb.WriteString(message)
	return sb.String()
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// defaultModeForIntent is the response mode paired with each intent when
// the model names an invalid mode.
func defaultModeForIntent(intent vocab.Intent) vocab.ResponseMode {
	if profile, ok := intentProfiles[intent]; ok {
		return profile.mode
	}
	return vocab.DefaultResponseMode
}
