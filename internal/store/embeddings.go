package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"forge/internal/logging"
	"forge/internal/types"
)

// EmbeddingScan selects the candidate set for a similarity search.
type EmbeddingScan struct {
	Model string
	// Since and Until bound the owning artifact's creation time.
	Since time.Time
	Until time.Time
	// OldestFirst biases which rows survive the scan cap when the corpus
	// exceeds it, not the similarity ranking itself.
	OldestFirst bool
	// Limit defaults to EmbeddingScanCap and cannot exceed it.
	Limit int
}

// UpsertEmbedding stores or replaces the vector for (artifact, model).
// The insert is gated on the artifact still being active, so a refresh
// that lands after a soft delete cannot resurrect the vector.
func (s *Store) UpsertEmbedding(ctx context.Context, emb types.ArtifactEmbedding) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifact_embeddings (artifact_id, model, dimension, vector, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM artifacts WHERE id = ? AND status = ?)
		ON CONFLICT(artifact_id, model) DO UPDATE SET
			dimension = excluded.dimension,
			vector = excluded.vector,
			created_at = excluded.created_at
	`, emb.ArtifactID, emb.Model, emb.Dimension, emb.Vector, formatTime(emb.CreatedAt),
		emb.ArtifactID, string(types.StatusActive))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// GetEmbedding returns the stored vector for (artifactID, model), or nil
// when absent.
func (s *Store) GetEmbedding(ctx context.Context, artifactID, model string) (*types.ArtifactEmbedding, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT artifact_id, model, dimension, vector, created_at
		FROM artifact_embeddings
		WHERE artifact_id = ? AND model = ?
	`, artifactID, model)

	var emb types.ArtifactEmbedding
	var createdAt string
	err := row.Scan(&emb.ArtifactID, &emb.Model, &emb.Dimension, &emb.Vector, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding: %w", err)
	}
	emb.CreatedAt = parseTime(createdAt)
	return &emb, nil
}

// DeleteEmbeddings hard-removes every stored vector for an artifact.
func (s *Store) DeleteEmbeddings(ctx context.Context, artifactID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifact_embeddings WHERE artifact_id = ?`, artifactID); err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// LoadEmbeddingCandidates returns up to EmbeddingScanCap stored vectors for
// active artifacts matching the scan bounds. Soft-deleted artifacts never
// appear here: their embeddings are removed at delete time, and the status
// join backstops that.
func (s *Store) LoadEmbeddingCandidates(ctx context.Context, scan EmbeddingScan) ([]types.ArtifactEmbedding, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	timer := logging.StartTimer(logging.CategoryStore, "LoadEmbeddingCandidates")
	defer timer.Stop()

	limit := scan.Limit
	if limit <= 0 || limit > EmbeddingScanCap {
		limit = EmbeddingScanCap
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT e.artifact_id, e.model, e.dimension, e.vector, e.created_at
		FROM artifact_embeddings e
		JOIN artifacts a ON a.id = e.artifact_id
		WHERE e.model = ? AND a.status = ?`
	args := []interface{}{scan.Model, string(types.StatusActive)}

	if !scan.Since.IsZero() {
		query += ` AND a.created_at >= ?`
		args = append(args, formatTime(scan.Since))
	}
	if !scan.Until.IsZero() {
		query += ` AND a.created_at <= ?`
		args = append(args, formatTime(scan.Until))
	}
	if scan.OldestFirst {
		query += ` ORDER BY a.created_at ASC, a.id ASC`
	} else {
		query += ` ORDER BY a.created_at DESC, a.id DESC`
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding candidates: %w", err)
	}
	defer rows.Close()

	var embeddings []types.ArtifactEmbedding
	for rows.Next() {
		var emb types.ArtifactEmbedding
		var createdAt string
		if err := rows.Scan(&emb.ArtifactID, &emb.Model, &emb.Dimension, &emb.Vector, &createdAt); err != nil {
			logging.StoreWarn("Skipping unreadable embedding row: %v", err)
			continue
		}
		emb.CreatedAt = parseTime(createdAt)
		embeddings = append(embeddings, emb)
	}
	return embeddings, rows.Err()
}
