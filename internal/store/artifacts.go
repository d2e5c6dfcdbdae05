package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"forge/internal/logging"
	"forge/internal/types"
	"forge/internal/vocab"
)

// ArtifactFilter narrows ListArtifacts. Zero fields are ignored.
type ArtifactFilter struct {
	UserID         string
	Types          []vocab.ArtifactType
	IncludeDeleted bool
	// ScriptureRef matches artifacts whose reference list contains the
	// given reference as a prefix, e.g. "John 3" matches "John 3:16".
	ScriptureRef string
	Since        time.Time
	Until        time.Time
	OldestFirst  bool
	Limit        int
}

// InsertArtifact stores a new artifact row.
func (s *Store) InsertArtifact(ctx context.Context, a *types.Artifact) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	refs, tags, meta, err := encodeArtifactJSON(a)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, user_id, group_id, conversation_id, session_id, artifact_type, scope,
			title, content, scripture_refs, tags, metadata, status, embedding_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.GroupID, a.ConversationID, a.SessionID, string(a.Type), string(a.Scope),
		a.Title, a.Content, refs, tags, meta, string(a.Status), string(a.EmbeddingStatus),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

// GetArtifact returns the artifact row by id regardless of status, or nil
// when absent. Callers decide how to treat soft-deleted rows.
func (s *Store) GetArtifact(ctx context.Context, id string) (*types.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, artifactSelect+` WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return a, nil
}

// UpdateArtifact rewrites the mutable columns of an artifact row.
func (s *Store) UpdateArtifact(ctx context.Context, a *types.Artifact) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	refs, tags, meta, err := encodeArtifactJSON(a)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE artifacts SET
			artifact_type = ?, scope = ?, title = ?, content = ?,
			scripture_refs = ?, tags = ?, metadata = ?,
			status = ?, embedding_status = ?, updated_at = ?
		WHERE id = ?
	`, string(a.Type), string(a.Scope), a.Title, a.Content,
		refs, tags, meta, string(a.Status), string(a.EmbeddingStatus),
		formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDeleteArtifact flips the artifact to deleted and hard-removes its
// embeddings in the same transaction, so vector search can never surface
// deleted content.
func (s *Store) SoftDeleteArtifact(ctx context.Context, id string, now time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE artifacts SET status = ?, updated_at = ? WHERE id = ?
	`, string(types.StatusDeleted), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("failed to mark artifact deleted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_embeddings WHERE artifact_id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove embeddings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// SetEmbeddingStatus records where an artifact sits in the embedding
// refresh lifecycle.
func (s *Store) SetEmbeddingStatus(ctx context.Context, id string, status types.EmbeddingStatus, now time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE artifacts SET embedding_status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("failed to set embedding status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListArtifacts returns artifact rows matching the filter, newest first
// unless OldestFirst is set.
func (s *Store) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*types.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := artifactSelect + ` WHERE 1=1`
	var args []interface{}

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if !filter.IncludeDeleted {
		query += ` AND status = ?`
		args = append(args, string(types.StatusActive))
	}
	if len(filter.Types) > 0 {
		query += ` AND artifact_type IN (` + placeholders(len(filter.Types)) + `)`
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if filter.ScriptureRef != "" {
		query += ` AND scripture_refs LIKE ? ESCAPE '\'`
		args = append(args, `%"`+escapeLike(filter.ScriptureRef)+`%`)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(filter.Since))
	}
	if !filter.Until.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, formatTime(filter.Until))
	}

	if filter.OldestFirst {
		query += ` ORDER BY created_at ASC, id ASC`
	} else {
		query += ` ORDER BY created_at DESC, id DESC`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*types.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			logging.StoreWarn("Skipping unreadable artifact row: %v", err)
			continue
		}
		// The LIKE clause is only a prefilter; it cannot tell "John 3"
		// from "John 30". Enforce the boundary here.
		if filter.ScriptureRef != "" && !anyRefMatches(a.ScriptureRefs, filter.ScriptureRef) {
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// refMatches reports whether a stored reference matches the requested one
// at a book, chapter, or verse boundary, so "John 3" matches "John 3:16"
// but not "John 30:1".
func refMatches(stored, want string) bool {
	if !strings.HasPrefix(stored, want) {
		return false
	}
	if len(stored) == len(want) {
		return true
	}
	switch stored[len(want)] {
	case ' ', ':', '-':
		return true
	}
	return false
}

func anyRefMatches(refs []string, want string) bool {
	for _, ref := range refs {
		if refMatches(ref, want) {
			return true
		}
	}
	return false
}

// GetArtifactsByIDs fetches the given artifact rows, keyed by id. Missing
// ids are simply absent from the result.
func (s *Store) GetArtifactsByIDs(ctx context.Context, ids []string) (map[string]*types.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	result := make(map[string]*types.Artifact, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, artifactSelect+` WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			logging.StoreWarn("Skipping unreadable artifact row: %v", err)
			continue
		}
		result[a.ID] = a
	}
	return result, rows.Err()
}

const artifactSelect = `
	SELECT id, user_id, group_id, conversation_id, session_id, artifact_type, scope,
		title, content, scripture_refs, tags, metadata, status, embedding_status, created_at, updated_at
	FROM artifacts`

func scanArtifact(row rowScanner) (*types.Artifact, error) {
	var a types.Artifact
	var artifactType, scope, status, embStatus, refs, tags, meta, createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.UserID, &a.GroupID, &a.ConversationID, &a.SessionID, &artifactType, &scope,
		&a.Title, &a.Content, &refs, &tags, &meta, &status, &embStatus, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = vocab.ArtifactType(artifactType)
	a.Scope = vocab.ArtifactScope(scope)
	a.Status = types.ArtifactStatus(status)
	a.EmbeddingStatus = types.EmbeddingStatus(embStatus)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(refs), &a.ScriptureRefs); err != nil {
		return nil, fmt.Errorf("failed to decode scripture refs: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &a.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &a, nil
}

func encodeArtifactJSON(a *types.Artifact) (refs, tags, meta string, err error) {
	refsB, err := json.Marshal(emptyIfNil(a.ScriptureRefs))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode scripture refs: %w", err)
	}
	tagsB, err := json.Marshal(emptyIfNil(a.Tags))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode tags: %w", err)
	}
	metaMap := a.Metadata
	if metaMap == nil {
		metaMap = map[string]string{}
	}
	metaB, err := json.Marshal(metaMap)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(refsB), string(tagsB), string(metaB), nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
