package types

import (
	"encoding/json"
	"fmt"

	"forge/internal/vocab"
)

// Value is the typed payload of a signal or memory. Exactly one branch is
// populated, selected by Kind; consumers switch exhaustively on Kind so a
// new memory type is a compile-time-visible change at every consumer.
type Value struct {
	Kind  vocab.MemoryType
	Theme vocab.StruggleTheme // populated when Kind is struggle_theme
	Stage vocab.FaithStage    // populated when Kind is faith_stage
}

// valueWire is the canonical JSON encoding of a Value. Struct field order
// fixes the serialized key order, so equal values always encode to the same
// bytes and the encoding can serve as a storage key.
type valueWire struct {
	Kind  string `json:"kind"`
	Theme string `json:"theme,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// ValueFrom builds a Value from a memory type and raw token, validating the
// pair against the closed vocabulary. Returns false for any pair outside the
// registry; callers drop invalid pairs, never correct them.
func ValueFrom(kind vocab.MemoryType, raw string) (Value, bool) {
	switch kind {
	case vocab.MemoryStruggleTheme:
		if vocab.ValidStruggleTheme(raw) {
			return Value{Kind: kind, Theme: vocab.StruggleTheme(raw)}, true
		}
	case vocab.MemoryFaithStage:
		if vocab.ValidFaithStage(raw) {
			return Value{Kind: kind, Stage: vocab.FaithStage(raw)}, true
		}
	}
	return Value{}, false
}

// ValueFromCandidate builds the typed union from an extractor candidate.
func ValueFromCandidate(c MemoryCandidate) (Value, bool) {
	return ValueFrom(c.Type, c.Value)
}

// Raw returns the closed-set token the value carries.
func (v Value) Raw() string {
	switch v.Kind {
	case vocab.MemoryStruggleTheme:
		return string(v.Theme)
	case vocab.MemoryFaithStage:
		return string(v.Stage)
	}
	return ""
}

// Valid reports whether the union carries a registered kind/token pair.
func (v Value) Valid() bool {
	_, ok := ValueFrom(v.Kind, v.Raw())
	return ok
}

// Equal reports whether two values carry the same typed fact.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.Raw() == o.Raw()
}

// String renders the value for logs, e.g. "struggle_theme/anxiety".
func (v Value) String() string {
	return string(v.Kind) + "/" + v.Raw()
}

// MarshalJSON encodes the canonical form, e.g.
// {"kind":"struggle_theme","theme":"anxiety"}.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid memory value: kind=%q raw=%q", v.Kind, v.Raw())
	}
	w := valueWire{Kind: string(v.Kind)}
	switch v.Kind {
	case vocab.MemoryStruggleTheme:
		w.Theme = string(v.Theme)
	case vocab.MemoryFaithStage:
		w.Stage = string(v.Stage)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates the canonical form. Values outside
// the closed vocabulary fail to decode; a stored value is never silently
// coerced into a different fact.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	raw := w.Theme
	if raw == "" {
		raw = w.Stage
	}
	parsed, ok := ValueFrom(vocab.MemoryType(w.Kind), raw)
	if !ok {
		return fmt.Errorf("memory value outside closed vocabulary: kind=%q", w.Kind)
	}
	*v = parsed
	return nil
}

// EncodeValue returns the canonical JSON string for a value, used as the
// value column in signal and memory rows.
func EncodeValue(v Value) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeValue parses a stored canonical JSON value.
func DecodeValue(s string) (Value, error) {
	var v Value
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Value{}, err
	}
	return v, nil
}
