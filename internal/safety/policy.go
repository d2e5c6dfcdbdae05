package safety

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"forge/internal/logging"
	"forge/internal/vocab"
)

// =============================================================================
// CATEGORY POLICY
// =============================================================================

// Policy is the optional operator-supplied allow-list restricting which
// note categories may be captured as memory. An empty list allows every
// category.
type Policy struct {
	AllowedCategories []string `yaml:"allowed_categories"`
}

// Filter holds the mutable policy behind a lock so the watcher can swap it
// while capture checks read it.
type Filter struct {
	mu         sync.RWMutex
	policyPath string
	allowed    map[vocab.NoteCategory]bool // nil means allow all
}

// NewFilter creates a Filter. If policyPath names an existing file it is
// loaded immediately; a missing file means no policy restriction.
func NewFilter(policyPath string) (*Filter, error) {
	f := &Filter{policyPath: policyPath}
	if policyPath == "" {
		return f, nil
	}
	if _, err := os.Stat(policyPath); os.IsNotExist(err) {
		return f, nil
	}
	if err := f.ReloadPolicy(); err != nil {
		return nil, err
	}
	return f, nil
}

// ReloadPolicy re-reads the policy file. Unknown categories in the file are
// ignored with a warning rather than failing the load.
func (f *Filter) ReloadPolicy() error {
	if f.policyPath == "" {
		return nil
	}

	data, err := os.ReadFile(f.policyPath)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}

	var allowed map[vocab.NoteCategory]bool
	if len(policy.AllowedCategories) > 0 {
		allowed = make(map[vocab.NoteCategory]bool)
		for _, raw := range policy.AllowedCategories {
			cat := vocab.NoteCategory(raw)
			if !vocab.ValidNoteCategory(string(cat)) {
				logging.SafetyWarn("policy lists unknown category %q, ignoring", raw)
				continue
			}
			allowed[cat] = true
		}
	}

	f.mu.Lock()
	f.allowed = allowed
	f.mu.Unlock()

	logging.Safety("policy loaded from %s (%d categories allowed)", f.policyPath, len(allowed))
	return nil
}

// AllowsCategory reports whether the current policy permits capturing the
// given note category.
func (f *Filter) AllowsCategory(cat vocab.NoteCategory) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.allowed == nil {
		return true
	}
	return f.allowed[cat]
}

// CheckCapture applies the category policy on top of the text-level capture
// gate.
func (f *Filter) CheckCapture(text string, category vocab.NoteCategory) Verdict {
	if !f.AllowsCategory(category) {
		return Verdict{Allowed: false, Reason: ReasonCategoryPolicy}
	}
	return CheckCapture(text)
}

// PolicyPath returns the configured policy file path.
func (f *Filter) PolicyPath() string {
	return f.policyPath
}
