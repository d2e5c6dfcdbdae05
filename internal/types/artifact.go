package types

import (
	"strings"
	"time"

	"forge/internal/vocab"
)

// ArtifactStatus is an artifact's lifecycle state. Deletion flips the
// status; embeddings are hard-removed at the same moment so a vector never
// references deleted content.
type ArtifactStatus string

const (
	StatusActive  ArtifactStatus = "active"
	StatusDeleted ArtifactStatus = "deleted"
)

// EmbeddingStatus tracks the out-of-band embedding refresh for an artifact,
// so the fire-and-forget pipeline stays observable.
type EmbeddingStatus string

const (
	// EmbeddingPending marks an embeddable artifact whose refresh has not
	// landed yet; it is invisible to similarity search.
	EmbeddingPending EmbeddingStatus = "pending"

	// EmbeddingReady marks a stored, searchable vector.
	EmbeddingReady EmbeddingStatus = "ready"

	// EmbeddingFailed marks a refresh whose retries were exhausted.
	EmbeddingFailed EmbeddingStatus = "failed"

	// EmbeddingSkipped marks artifact types with no embeddable prose.
	EmbeddingSkipped EmbeddingStatus = "skipped"
)

// Artifact is a stored unit of user-generated content eligible for
// retrieval.
type Artifact struct {
	ID              string
	UserID          string
	GroupID         string // required when Scope is group
	ConversationID  string
	SessionID       string
	Type            vocab.ArtifactType
	Scope           vocab.ArtifactScope
	Title           string
	Content         string
	ScriptureRefs   []string
	Tags            []string
	Metadata        map[string]string
	Status          ArtifactStatus
	EmbeddingStatus EmbeddingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmbeddingText builds the text an artifact is vectorized from: title,
// content, and a scripture summary when present.
func (a *Artifact) EmbeddingText() string {
	parts := make([]string, 0, 3)
	if a.Title != "" {
		parts = append(parts, a.Title)
	}
	if a.Content != "" {
		parts = append(parts, a.Content)
	}
	if len(a.ScriptureRefs) > 0 {
		parts = append(parts, "Scripture: "+strings.Join(a.ScriptureRefs, "; "))
	}
	return strings.Join(parts, "\n")
}

// ArtifactEdge is a directed relationship between two artifacts.
type ArtifactEdge struct {
	FromID    string
	ToID      string
	Relation  vocab.EdgeRelation
	CreatedAt time.Time
}

// ArtifactEmbedding is one stored vector for an (artifact, model) pair.
// Vector holds raw little-endian float32 bytes; the blob carries no header,
// so Dimension is tracked on the row.
type ArtifactEmbedding struct {
	ArtifactID string
	Model      string
	Dimension  int
	Vector     []byte
	CreatedAt  time.Time
}
