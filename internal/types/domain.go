// Package types provides shared type definitions used across forge packages.
// This package exists to break import cycles between extraction, memory,
// artifact, and the store. Types in this package should be foundational data
// structures with no complex dependencies.
package types

import (
	"time"

	"forge/internal/vocab"
)

// MemoryCandidate is a typed fact about the user proposed by the extractor.
// Ephemeral: candidates flow through the promotion engine and are never
// persisted directly.
type MemoryCandidate struct {
	Type       vocab.MemoryType `json:"type"`
	Value      string           `json:"value"`
	Confidence float64          `json:"confidence"`
	Evidence   string           `json:"evidence"`
}

// Signal is a short-lived counter tracking repeated sightings of a candidate
// fact, pending promotion. Unique per (user, type, value); deleted on
// promotion or TTL expiry.
type Signal struct {
	ID                 int64
	UserID             string
	Type               vocab.SignalType
	Value              Value
	Count              int
	LastConversationID string
	ExpiresAt          time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Memory is a durable fact about a user, created by promotion or explicit
// capture and reinforced when the same value resurfaces.
type Memory struct {
	ID          int64
	UserID      string
	Type        vocab.MemoryType
	Value       Value
	Occurrences int
	Strength    vocab.MemoryStrength
	Source      vocab.MemorySource
	IsActive    bool
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// SessionNote is a conversation-scoped memory note with optional expiry.
// Notes are raw material for the end-of-session consolidator, which folds
// them into the user's global state and then deletes them.
type SessionNote struct {
	ID             int64
	UserID         string
	ConversationID string
	Text           string
	CreatedAt      time.Time
	ExpiresAt      *time.Time
}
