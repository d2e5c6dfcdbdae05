package vocab

// ArtifactType is the closed set of stored user-content kinds eligible for
// retrieval.
type ArtifactType string

const (
	ArtifactSessionSummary ArtifactType = "session_summary"
	ArtifactNote           ArtifactType = "note"
	ArtifactHighlight      ArtifactType = "highlight"
	ArtifactPrayer         ArtifactType = "prayer"
	ArtifactReflection     ArtifactType = "reflection"

	// ArtifactBookmark is a bare position marker. Stored and listed, but not
	// embedded: there is no prose to vectorize.
	ArtifactBookmark ArtifactType = "bookmark"
)

// AllArtifactTypes returns every valid artifact type.
func AllArtifactTypes() []ArtifactType {
	return []ArtifactType{
		ArtifactSessionSummary,
		ArtifactNote,
		ArtifactHighlight,
		ArtifactPrayer,
		ArtifactReflection,
		ArtifactBookmark,
	}
}

// ValidArtifactType reports whether s names a registered artifact type.
func ValidArtifactType(s string) bool {
	for _, t := range AllArtifactTypes() {
		if string(t) == s {
			return true
		}
	}
	return false
}

// embeddableTypes lists the artifact types whose content is vectorized for
// similarity search. Bookmarks carry no embeddable prose.
var embeddableTypes = map[ArtifactType]bool{
	ArtifactSessionSummary: true,
	ArtifactNote:           true,
	ArtifactHighlight:      true,
	ArtifactPrayer:         true,
	ArtifactReflection:     true,
}

// Embeddable reports whether artifacts of type t receive embeddings.
func Embeddable(t ArtifactType) bool {
	return embeddableTypes[t]
}

// ArtifactScope is an artifact's visibility class.
type ArtifactScope string

const (
	// ScopePrivate artifacts are visible only to their owner.
	ScopePrivate ArtifactScope = "private"

	// ScopeGroup artifacts are visible to members of the owning group.
	ScopeGroup ArtifactScope = "group"

	// ScopeGlobal artifacts are visible to every caller.
	ScopeGlobal ArtifactScope = "global"
)

// AllArtifactScopes returns every valid artifact scope.
func AllArtifactScopes() []ArtifactScope {
	return []ArtifactScope{ScopePrivate, ScopeGroup, ScopeGlobal}
}

// ValidArtifactScope reports whether s names a registered scope.
func ValidArtifactScope(s string) bool {
	for _, sc := range AllArtifactScopes() {
		if string(sc) == s {
			return true
		}
	}
	return false
}

// EdgeRelation is the closed set of directed artifact relationships.
type EdgeRelation string

const (
	RelationFollowsUp    EdgeRelation = "follows_up"
	RelationSummarizes   EdgeRelation = "summarizes"
	RelationReferences   EdgeRelation = "references"
	RelationPartOfThread EdgeRelation = "part_of_thread"
)

// AllEdgeRelations returns every valid edge relation.
func AllEdgeRelations() []EdgeRelation {
	return []EdgeRelation{
		RelationFollowsUp,
		RelationSummarizes,
		RelationReferences,
		RelationPartOfThread,
	}
}

// ValidEdgeRelation reports whether s names a registered edge relation.
func ValidEdgeRelation(s string) bool {
	for _, r := range AllEdgeRelations() {
		if string(r) == s {
			return true
		}
	}
	return false
}
