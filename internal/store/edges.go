package store

import (
	"context"
	"fmt"
	"time"

	"forge/internal/types"
	"forge/internal/vocab"
)

// InsertEdge records a typed relation between two artifacts. Re-inserting
// an existing edge is a no-op.
func (s *Store) InsertEdge(ctx context.Context, edge types.ArtifactEdge) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := edge.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifact_edges (from_id, to_id, relation, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, relation) DO NOTHING
	`, edge.FromID, edge.ToID, string(edge.Relation), formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}
	return nil
}

// EdgesFrom returns all edges leaving an artifact.
func (s *Store) EdgesFrom(ctx context.Context, fromID string) ([]types.ArtifactEdge, error) {
	return s.queryEdges(ctx, `from_id = ?`, fromID)
}

// EdgesTo returns all edges arriving at an artifact.
func (s *Store) EdgesTo(ctx context.Context, toID string) ([]types.ArtifactEdge, error) {
	return s.queryEdges(ctx, `to_id = ?`, toID)
}

func (s *Store) queryEdges(ctx context.Context, where string, arg interface{}) ([]types.ArtifactEdge, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT from_id, to_id, relation, created_at FROM artifact_edges WHERE `+where+` ORDER BY created_at ASC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []types.ArtifactEdge
	for rows.Next() {
		var edge types.ArtifactEdge
		var relation, createdAt string
		if err := rows.Scan(&edge.FromID, &edge.ToID, &relation, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge.Relation = vocab.EdgeRelation(relation)
		edge.CreatedAt = parseTime(createdAt)
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}
