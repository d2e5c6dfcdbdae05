// Package extraction proposes durable memory candidates from conversation
// turns. The completion model is instructed to answer only with values from
// the closed vocabularies and to quote the user's own words as evidence;
// everything it returns is re-validated here. Extraction is best-effort:
// every failure path yields an empty list and never blocks the turn.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"forge/internal/llm"
	"forge/internal/logging"
	"forge/internal/safety"
	"forge/internal/types"
	"forge/internal/vocab"
)

// TurnContext is the extraction input. AssistantResponse and
// ConversationSummary are optional grounding context; candidates may only
// be evidenced by the user's message.
type TurnContext struct {
	UserID              string
	Message             string
	AssistantResponse   string
	ConversationSummary string
}

// Extractor proposes at most MaxCandidatesPerTurn closed-vocabulary
// candidates per turn.
type Extractor struct {
	client llm.Client
}

// NewExtractor creates an extractor. client may be nil, which disables
// extraction entirely.
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract proposes 0-2 memory candidates for a turn. Provider errors,
// malformed JSON, and empty messages all yield an empty list.
func (e *Extractor) Extract(ctx context.Context, turn TurnContext) []types.MemoryCandidate {
	timer := logging.StartTimer(logging.CategoryExtraction, "extract")
	defer timer.Stop()

	if e.client == nil {
		return nil
	}
	message := strings.TrimSpace(turn.Message)
	if message == "" {
		return nil
	}

	response, err := e.client.CompleteWithSystem(ctx, extractSystemPrompt, buildExtractPrompt(turn))
	if err != nil {
		logging.ExtractionWarn("provider call failed, skipping turn: %v", err)
		return nil
	}

	arrJSON := llm.ExtractJSONArray(response)
	if arrJSON == "" {
		logging.ExtractionWarn("no JSON array in model response")
		return nil
	}

	var raw []wireCandidate
	if err := json.Unmarshal([]byte(arrJSON), &raw); err != nil {
		logging.ExtractionWarn("candidate parse failed: %v", err)
		return nil
	}

	candidates := make([]types.MemoryCandidate, 0, vocab.MaxCandidatesPerTurn)
	for _, rc := range raw {
		if len(candidates) == vocab.MaxCandidatesPerTurn {
			logging.ExtractionDebug("candidate cap reached, dropping surplus")
			break
		}
		if candidate, ok := e.validate(rc, turn.UserID, message); ok {
			candidates = append(candidates, candidate)
		}
	}

	logging.Extraction("extracted %d candidate(s) from turn", len(candidates))
	return candidates
}

// wireCandidate is the JSON shape the model must return, one object per
// proposed fact.
type wireCandidate struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

// validate re-checks one model-proposed candidate: closed vocabulary,
// confidence floor, evidence grounded in the user message, and the safety
// filter on the evidence quote. Invalid candidates are dropped, never
// corrected.
func (e *Extractor) validate(rc wireCandidate, userID, message string) (types.MemoryCandidate, bool) {
	value, ok := vocab.ValueForType(rc.Type, rc.Value)
	if !ok {
		logging.ExtractionWarn("dropping candidate outside closed vocabulary: type=%q value=%q", rc.Type, rc.Value)
		return types.MemoryCandidate{}, false
	}

	if rc.Confidence < vocab.MinExtractionConfidence {
		logging.ExtractionDebug("dropping low-confidence candidate: %s/%s conf=%.2f", rc.Type, value, rc.Confidence)
		return types.MemoryCandidate{}, false
	}
	confidence := rc.Confidence
	if confidence > 1.0 {
		confidence = 1.0
	}

	evidence := strings.TrimSpace(rc.Evidence)
	if evidence == "" || !containsNormalized(message, evidence) {
		logging.ExtractionWarn("dropping ungrounded candidate: %s/%s", rc.Type, value)
		return types.MemoryCandidate{}, false
	}

	// Evidence quoting a sensitive disclosure must not travel further even
	// when the candidate value itself is pastoral.
	if verdict := safety.Check(evidence); !verdict.Allowed {
		logging.SafetyAudit(logging.AuditSafetyBlock, userID, verdict.Reason, len(evidence))
		return types.MemoryCandidate{}, false
	}

	return types.MemoryCandidate{
		Type:       vocab.MemoryType(rc.Type),
		Value:      value,
		Confidence: confidence,
		Evidence:   evidence,
	}, true
}

// containsNormalized reports whether needle appears in haystack after
// lowercasing and whitespace collapsing both. Grounding tolerates casing
// and spacing drift in the model's quote, nothing more.
func containsNormalized(haystack, needle string) bool {
	h := strings.Join(strings.Fields(strings.ToLower(haystack)), " ")
	n := strings.Join(strings.Fields(strings.ToLower(needle)), " ")
	if n == "" {
		return false
	}
	return strings.Contains(h, n)
}

// =============================================================================
// PROMPTS
// =============================================================================

var extractSystemPrompt = buildExtractSystemPrompt()

func buildExtractSystemPrompt() string {
	themes := make([]string, 0, len(vocab.AllStruggleThemes()))
	for _, t := range vocab.AllStruggleThemes() {
		themes = append(themes, string(t))
	}
	stages := make([]string, 0, len(vocab.AllFaithStages()))
	for _, s := range vocab.AllFaithStages() {
		stages = append(stages, string(s))
	}

	return fmt.Sprintf(`You extract durable facts about the user from one conversation turn of a Bible-study and prayer assistant.

Return ONLY a JSON array, no prose. Each element:
{"type": "<type>", "value": "<value>", "confidence": <0.0-1.0>, "evidence": "<short exact quote from the user's message>"}

type must be exactly one of: struggle_theme, faith_stage
struggle_theme values: %s
faith_stage values: %s

Rules:
- Extract only facts the user states about themselves, in their own words.
- evidence must be an exact quote from the user's message, not a paraphrase.
- confidence 0.8 or higher for explicit statements; 0.7-0.8 when the fact is implied by repetition; omit anything weaker.
- At most 2 elements. Return [] when nothing qualifies.
- Never use a value outside the lists above.`,
		strings.Join(themes, ", "), strings.Join(stages, ", "))
}

func buildExtractPrompt(turn TurnContext) string {
	var sb strings.Builder

	if turn.ConversationSummary != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(turn.ConversationSummary)
		sb.WriteString("\n\n")
	}

	sb.WriteString("User message:\n")
	sb.WriteString(turn.Message)

	if turn.AssistantResponse != "" {
		sb.WriteString("\n\nAssistant response:\n")
		sb.WriteString(turn.AssistantResponse)
	}

	return sb.String()
}
