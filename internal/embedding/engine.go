// Package embedding turns artifact text into vectors and keeps them
// current as artifacts change. Three backends (Gemini, Ollama, OpenAI)
// sit behind one Engine interface; similarity is brute-force cosine over
// candidate sets the store caps for us.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"

	"forge/internal/config"
	"forge/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality this engine produces.
	Dimensions() int

	// Name identifies the engine and model. It keys stored vectors, so
	// vectors produced by different engines never mix in a search.
	Name() string
}

// HealthChecker is an optional interface for engines that can verify
// their backing service is reachable before batch work starts.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewEngine creates an embedding engine from configuration.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	logging.Embedding("Creating embedding engine: provider=%s model=%s dimension=%d",
		cfg.Provider, cfg.Model, cfg.Dimension)

	var engine Engine
	var err error

	switch cfg.Provider {
	case "gemini":
		engine, err = NewGeminiEngine(cfg.APIKey, cfg.Model, cfg.Dimension)
	case "ollama":
		engine, err = NewOllamaEngine(cfg.BaseURL, cfg.Model, cfg.Dimension, cfg.GetTimeout())
	case "openai":
		engine, err = NewOpenAIEngine(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimension, cfg.GetTimeout())
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'gemini', 'ollama', or 'openai')", cfg.Provider)
	}
	if err != nil {
		logging.EmbeddingError("Failed to create embedding engine: %v", err)
		return nil, err
	}

	logging.Embedding("Embedding engine ready: name=%s dimensions=%d", engine.Name(), engine.Dimensions())
	return engine, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths are an error; a zero-magnitude vector yields 0
// rather than NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}

// SimilarityResult is one ranked hit from FindTopK. Index points into the
// corpus that was searched.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// FindTopK ranks corpus vectors by cosine similarity to the query and
// returns the best k. Corpus vectors whose dimension does not match the
// query are skipped. A non-positive k defaults to 10.
func FindTopK(query []float32, corpus [][]float32, k int) []SimilarityResult {
	timer := logging.StartTimer(logging.CategoryEmbedding, "FindTopK")
	defer timer.Stop()

	if k <= 0 {
		k = 10
	}

	results := make([]SimilarityResult, 0, len(corpus))
	skipped := 0
	for i, vec := range corpus {
		sim, err := CosineSimilarity(query, vec)
		if err != nil {
			skipped++
			continue
		}
		results = append(results, SimilarityResult{Index: i, Similarity: sim})
	}
	if skipped > 0 {
		logging.EmbeddingWarn("FindTopK: skipped %d vectors with mismatched dimensions", skipped)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}

	logging.EmbeddingDebug("FindTopK: %d results from corpus of %d", len(results), len(corpus))
	return results
}
