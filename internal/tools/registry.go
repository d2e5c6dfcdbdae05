// Package tools exposes the engine to an external orchestrator as a set
// of named tools with JSON schemas. Handlers return JSON-encoded strings.
// Argument validation failures degrade to a {"saved":false,"reason":...}
// result instead of an error, so a model's malformed call never aborts
// the conversational turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"forge/internal/logging"
)

// Handler is the signature for tool execution. userID arrives resolved;
// the orchestrator owns authentication.
type Handler func(ctx context.Context, userID string, args map[string]interface{}) (string, error)

// Tool is one callable surface entry.
type Tool struct {
	// Name is the unique identifier the orchestrator calls the tool by.
	Name string

	// Description explains what the tool does, for model tool selection.
	Description string

	// Schema is the JSON Schema for the tool's arguments.
	Schema map[string]interface{}

	// Handler runs the tool.
	Handler Handler
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Handler == nil {
		return ErrToolHandlerNil
	}
	return nil
}

// Registry holds the registered tools. It is thread-safe and supports
// registration at runtime.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool

	logging.ToolsDebug("Registered tool: %s", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at construction time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered tool, sorted by name.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		all = append(all, tool)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name. An unknown tool or an empty user id is a
// caller error; everything that can go wrong with the arguments or the
// underlying engine comes back as a degraded JSON result.
func (r *Registry) Execute(ctx context.Context, userID, name string, args map[string]interface{}) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if strings.TrimSpace(userID) == "" {
		return "", ErrMissingUserID
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	if missing := missingRequired(tool.Schema, args); missing != "" {
		reason := "missing required argument: " + missing
		logging.ToolAudit(tool.Name, userID, false, reason)
		return Rejection(reason), nil
	}

	start := time.Now()
	logging.ToolsDebug("Executing tool: %s", tool.Name)
	result, err := tool.Handler(ctx, userID, args)
	logging.ToolsDebug("Tool %s completed in %v (success=%v)", tool.Name, time.Since(start), err == nil)
	return result, err
}

// missingRequired returns the first required argument absent from args,
// or "" when all are present.
func missingRequired(schema, args map[string]interface{}) string {
	required, ok := schema["required"].([]string)
	if !ok {
		return ""
	}
	for _, key := range required {
		if _, present := args[key]; !present {
			return key
		}
	}
	return ""
}

// Rejection builds the degraded not-saved result the tool surface
// promises for validation and safety failures.
func Rejection(reason string) string {
	out, _ := json.Marshal(map[string]interface{}{
		"saved":  false,
		"reason": reason,
	})
	return string(out)
}
