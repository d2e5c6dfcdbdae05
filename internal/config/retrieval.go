package config

// RetrievalConfig shapes similarity retrieval. The scan cap and superset
// size are cost bounds with observable effect: similarity search never sees
// more than CandidateScanCap stored vectors, and access control filters a
// superset of SupersetSize before the caller's limit is applied. Both are
// deliberate, documented bounds rather than silent truncation.
type RetrievalConfig struct {
	// CandidateScanCap caps how many stored vectors one search will score.
	// Artifacts beyond the cap (least recent first) are not considered.
	CandidateScanCap int `yaml:"candidate_scan_cap"`

	// SupersetSize is how many ranked artifacts the similarity pass hands to
	// the access-control pass.
	SupersetSize int `yaml:"superset_size"`

	// DefaultLimit is the result count when the caller does not specify one.
	DefaultLimit int `yaml:"default_limit"`

	// SnippetLength is the approximate character budget per preview snippet.
	SnippetLength int `yaml:"snippet_length"`

	// QueryCacheSize bounds the ristretto query-embedding cache, in entries.
	QueryCacheSize int `yaml:"query_cache_size"`
}

// DefaultRetrievalConfig returns retrieval defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		CandidateScanCap: 500,
		SupersetSize:     20,
		DefaultLimit:     5,
		SnippetLength:    100,
		QueryCacheSize:   1024,
	}
}
