package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"forge/internal/artifact"
	"forge/internal/logging"
	"forge/internal/memory"
	"forge/internal/retrieval"
	"forge/internal/safety"
	"forge/internal/store"
	"forge/internal/types"
	"forge/internal/vocab"
)

// Deps holds the services the default tool set is wired to. Policy is
// optional; without it capture checks run with every category allowed.
type Deps struct {
	Artifacts *artifact.Service
	Memory    *memory.Engine
	Retrieval *retrieval.Service
	Policy    *safety.Filter
}

// NewDefaultRegistry builds the frozen tool surface the orchestrator
// depends on. Tool names and argument shapes are a compatibility
// contract; add tools, do not rename these.
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	r.MustRegister(createGetVerseNotesTool(deps))
	r.MustRegister(createSaveMemoryCandidateTool(deps))
	r.MustRegister(createSaveSessionNoteTool(deps))
	r.MustRegister(createSearchArtifactsTool(deps))
	r.MustRegister(createGetMemoryProfileTool(deps))
	return r
}

// ────────────────────────────────────────────────────────────────────────────
// get_verse_notes
// ────────────────────────────────────────────────────────────────────────────

type verseNote struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Title         string   `json:"title,omitempty"`
	Content       string   `json:"content,omitempty"`
	ScriptureRefs []string `json:"scriptureRefs,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAtISO  string   `json:"createdAtISO"`
}

func createGetVerseNotesTool(deps Deps) *Tool {
	return &Tool{
		Name:        "get_verse_notes",
		Description: "List the user's saved notes, highlights, and reflections, optionally narrowed to a passage or a time window.",
		Schema: ObjectSchema(map[string]interface{}{
			"sinceISO": StringProperty("Only include artifacts created at or after this RFC 3339 timestamp"),
			"limit":    IntegerProperty("Maximum number of artifacts to return (default 20, max 100)"),
			"bookId":   StringProperty("Bible book name as it appears in references, e.g. \"John\""),
			"chapter":  IntegerProperty("Chapter number; ignored without bookId"),
			"verse":    IntegerProperty("Verse number; ignored without bookId and chapter"),
		}),
		Handler: func(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
			filter := store.ArtifactFilter{Limit: 20}
			if limit, ok := intArg(args, "limit"); ok && limit > 0 {
				if limit > 100 {
					limit = 100
				}
				filter.Limit = limit
			}
			if since := stringArg(args, "sinceISO"); since != "" {
				ts, err := time.Parse(time.RFC3339, since)
				if err != nil {
					logging.ToolAudit("get_verse_notes", userID, false, "invalid sinceISO")
					return Rejection("sinceISO is not an RFC 3339 timestamp"), nil
				}
				filter.Since = ts
			}
			filter.ScriptureRef = passageRef(args)

			artifacts, err := deps.Artifacts.List(ctx, userID, filter)
			if err != nil {
				logging.ToolsWarn("get_verse_notes degraded to empty: %v", err)
				artifacts = nil
			}

			notes := make([]verseNote, 0, len(artifacts))
			for _, a := range artifacts {
				notes = append(notes, verseNote{
					ID:            a.ID,
					Type:          string(a.Type),
					Title:         a.Title,
					Content:       a.Content,
					ScriptureRefs: a.ScriptureRefs,
					Tags:          a.Tags,
					CreatedAtISO:  a.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
			logging.ToolAudit("get_verse_notes", userID, true, "")
			return marshalResult(map[string]interface{}{
				"count": len(notes),
				"notes": notes,
			})
		},
	}
}

// passageRef builds the reference prefix a bookId/chapter/verse triple
// selects. Chapter without bookId, or verse without chapter, is dropped
// rather than rejected.
func passageRef(args map[string]interface{}) string {
	book := strings.TrimSpace(stringArg(args, "bookId"))
	if book == "" {
		return ""
	}
	chapter, ok := intArg(args, "chapter")
	if !ok || chapter <= 0 {
		return book
	}
	verse, ok := intArg(args, "verse")
	if !ok || verse <= 0 {
		return fmt.Sprintf("%s %d", book, chapter)
	}
	return fmt.Sprintf("%s %d:%d", book, chapter, verse)
}

// ────────────────────────────────────────────────────────────────────────────
// save_memory_candidate
// ────────────────────────────────────────────────────────────────────────────

func createSaveMemoryCandidateTool(deps Deps) *Tool {
	categories := make([]string, 0, len(vocab.AllNoteCategories()))
	for _, c := range vocab.AllNoteCategories() {
		categories = append(categories, string(c))
	}

	return &Tool{
		Name:        "save_memory_candidate",
		Description: "Save a durable memory about the user. Use for facts worth recalling weeks later, not conversational filler.",
		Schema: ObjectSchema(map[string]interface{}{
			"text":       StringProperty("The memory text, one or two sentences"),
			"category":   StringEnumProperty("Kind of memory being saved", categories...),
			"confidence": NumberProperty("How certain the memory is accurate, in [0,1]"),
			"source":     StringProperty("Where the memory came from, e.g. \"conversation\""),
			"keywords":   ArrayProperty("Short lookup keywords", StringProperty("keyword")),
		}, "text", "category", "confidence", "source"),
		Handler: func(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
			text := strings.TrimSpace(stringArg(args, "text"))
			if text == "" {
				return reject("save_memory_candidate", userID, "empty text"), nil
			}
			category := stringArg(args, "category")
			if !vocab.ValidNoteCategory(category) {
				return reject("save_memory_candidate", userID, "unknown category: "+category), nil
			}
			confidence, ok := floatArg(args, "confidence")
			if !ok {
				return reject("save_memory_candidate", userID, "confidence must be a number"), nil
			}
			if confidence < vocab.MinExtractionConfidence {
				return reject("save_memory_candidate", userID,
					fmt.Sprintf("confidence %.2f below minimum %.2f", confidence, vocab.MinExtractionConfidence)), nil
			}

			verdict := captureVerdict(deps, text, vocab.NoteCategory(category))
			if !verdict.Allowed {
				logging.SafetyAudit(logging.AuditSafetyBlock, userID, verdict.Reason, len(text))
				return reject("save_memory_candidate", userID, verdict.Reason), nil
			}

			saved, reason, err := deps.Memory.CaptureNote(ctx, userID, types.MemoryNote{
				Text:     text,
				Keywords: stringSliceArg(args, "keywords"),
			})
			if err != nil {
				logging.ToolsWarn("save_memory_candidate storage failure: %v", err)
				return reject("save_memory_candidate", userID, "storage failure"), nil
			}
			if !saved {
				return reject("save_memory_candidate", userID, reason), nil
			}

			logging.ToolAudit("save_memory_candidate", userID, true, "")
			logging.ToolsDebug("Captured %s memory from source %q for user %s", category, stringArg(args, "source"), userID)
			return `{"saved":true}`, nil
		},
	}
}

// captureVerdict runs the policy-aware capture gate when a policy filter
// is wired, and the bare one when not.
func captureVerdict(deps Deps, text string, category vocab.NoteCategory) safety.Verdict {
	if deps.Policy != nil {
		return deps.Policy.CheckCapture(text, category)
	}
	return safety.CheckCapture(text)
}

// ────────────────────────────────────────────────────────────────────────────
// save_session_note
// ────────────────────────────────────────────────────────────────────────────

func createSaveSessionNoteTool(deps Deps) *Tool {
	return &Tool{
		Name:        "save_session_note",
		Description: "Save a note scoped to the current conversation. Session notes are folded into the profile at consolidation time.",
		Schema: ObjectSchema(map[string]interface{}{
			"text":           StringProperty("The note text"),
			"conversationId": StringProperty("Conversation the note belongs to"),
			"expiresInHours": NumberProperty("Optional TTL; the note is ignored by consolidation after this many hours"),
		}, "text", "conversationId"),
		Handler: func(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
			text := strings.TrimSpace(stringArg(args, "text"))
			if text == "" {
				return reject("save_session_note", userID, "empty text"), nil
			}
			conversationID := strings.TrimSpace(stringArg(args, "conversationId"))
			if conversationID == "" {
				return reject("save_session_note", userID, "empty conversationId"), nil
			}

			if verdict := safety.CheckCapture(text); !verdict.Allowed {
				logging.SafetyAudit(logging.AuditSafetyBlock, userID, verdict.Reason, len(text))
				return reject("save_session_note", userID, verdict.Reason), nil
			}

			var expiresAt *time.Time
			if hours, ok := floatArg(args, "expiresInHours"); ok && hours > 0 {
				t := time.Now().Add(time.Duration(hours * float64(time.Hour)))
				expiresAt = &t
			}

			saved, reason, err := deps.Memory.SaveSessionNote(ctx, userID, conversationID, text, expiresAt)
			if err != nil {
				logging.ToolsWarn("save_session_note storage failure: %v", err)
				return reject("save_session_note", userID, "storage failure"), nil
			}
			if !saved {
				return reject("save_session_note", userID, reason), nil
			}

			logging.ToolAudit("save_session_note", userID, true, "")
			return `{"saved":true}`, nil
		},
	}
}

// ────────────────────────────────────────────────────────────────────────────
// search_artifacts
// ────────────────────────────────────────────────────────────────────────────

type searchHit struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Title         string   `json:"title,omitempty"`
	Snippet       string   `json:"snippet"`
	Similarity    float64  `json:"similarity"`
	ScriptureRefs []string `json:"scriptureRefs,omitempty"`
}

func createSearchArtifactsTool(deps Deps) *Tool {
	typeNames := make([]string, 0, len(vocab.AllArtifactTypes()))
	for _, at := range vocab.AllArtifactTypes() {
		typeNames = append(typeNames, string(at))
	}

	return &Tool{
		Name:        "search_artifacts",
		Description: "Semantic search over the user's saved content. Returns short dated snippets ranked by relevance.",
		Schema: ObjectSchema(map[string]interface{}{
			"query": StringProperty("Natural-language description of what to recall"),
			"types": ArrayProperty("Restrict results to artifact types", StringEnumProperty("artifact type", typeNames...)),
			"limit": IntegerProperty("Maximum results (default 5)"),
		}, "query"),
		Handler: func(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
			query := strings.TrimSpace(stringArg(args, "query"))
			if query == "" {
				return reject("search_artifacts", userID, "empty query"), nil
			}

			var artifactTypes []vocab.ArtifactType
			for _, raw := range stringSliceArg(args, "types") {
				if !vocab.ValidArtifactType(raw) {
					logging.ToolsDebug("Dropping unknown artifact type %q from search", raw)
					continue
				}
				artifactTypes = append(artifactTypes, vocab.ArtifactType(raw))
			}
			limit, _ := intArg(args, "limit")

			empty := map[string]interface{}{"count": 0, "results": []searchHit{}}
			if deps.Retrieval == nil {
				return marshalResult(empty)
			}
			result, err := deps.Retrieval.Retrieve(ctx, retrieval.Request{
				Query:  query,
				UserID: userID,
				Types:  artifactTypes,
				Limit:  limit,
			})
			if err != nil {
				logging.ToolsWarn("search_artifacts degraded to empty: %v", err)
				return marshalResult(empty)
			}

			hits := make([]searchHit, 0, len(result.Snippets))
			for i, snip := range result.Snippets {
				a := result.Artifacts[i]
				hits = append(hits, searchHit{
					ID:            a.ID,
					Type:          string(a.Type),
					Title:         a.Title,
					Snippet:       snip.Text,
					Similarity:    snip.Similarity,
					ScriptureRefs: a.ScriptureRefs,
				})
			}
			logging.ToolAudit("search_artifacts", userID, true, "")
			return marshalResult(map[string]interface{}{
				"count":   len(hits),
				"results": hits,
			})
		},
	}
}

// ────────────────────────────────────────────────────────────────────────────
// get_memory_profile
// ────────────────────────────────────────────────────────────────────────────

func createGetMemoryProfileTool(deps Deps) *Tool {
	return &Tool{
		Name:        "get_memory_profile",
		Description: "Return everything durable the engine knows about the user: global notes and promoted memories.",
		Schema:      ObjectSchema(map[string]interface{}{}),
		Handler: func(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
			profile, err := deps.Memory.GetProfile(ctx, userID)
			if err != nil {
				logging.ToolsWarn("get_memory_profile degraded to empty: %v", err)
				profile = &memory.Profile{
					SchemaVersion: vocab.MemoryStateSchemaVersion,
					GlobalNotes:   []types.MemoryNote{},
					Memories:      []memory.ProfileMemory{},
				}
			}
			logging.ToolAudit("get_memory_profile", userID, true, "")
			out, err := json.Marshal(profile)
			if err != nil {
				return "", fmt.Errorf("failed to encode profile: %w", err)
			}
			return string(out), nil
		},
	}
}

// ────────────────────────────────────────────────────────────────────────────
// shared helpers
// ────────────────────────────────────────────────────────────────────────────

// reject audits and builds a degraded not-saved result in one step.
func reject(tool, userID, reason string) string {
	logging.ToolAudit(tool, userID, false, reason)
	return Rejection(reason)
}

func marshalResult(v interface{}) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(out), nil
}

// stringArg reads a string argument; missing or wrong-typed values
// come back as "".
func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// floatArg reads a number argument. JSON numbers decode as float64.
func floatArg(args map[string]interface{}, key string) (float64, bool) {
	switch n := args[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// intArg reads an integer argument, truncating a fractional value.
func intArg(args map[string]interface{}, key string) (int, bool) {
	f, ok := floatArg(args, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// stringSliceArg reads an array-of-strings argument, dropping non-string
// elements.
func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
