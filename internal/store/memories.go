package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"forge/internal/logging"
	"forge/internal/types"
	"forge/internal/vocab"
)

// strengthForNextOccurrence regrades strength in the same statement that
// bumps occurrences. SQLite evaluates SET expressions against the old row,
// so the breakpoints compare against occurrences + 1.
var strengthForNextOccurrence = fmt.Sprintf(
	"CASE WHEN occurrences + 1 >= %d THEN '%s' WHEN occurrences + 1 >= %d THEN '%s' ELSE '%s' END",
	vocab.StrengthStrongAt, vocab.StrengthStrong,
	vocab.StrengthModerateAt, vocab.StrengthModerate,
	vocab.StrengthLight,
)

// GetMemory returns the memory row for (userID, value), or nil when absent.
func (s *Store) GetMemory(ctx context.Context, userID string, value types.Value) (*types.Memory, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMemoryLocked(ctx, userID, value)
}

func (s *Store) getMemoryLocked(ctx context.Context, userID string, value types.Value) (*types.Memory, error) {
	encoded, err := types.EncodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode memory value: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, memory_type, value, occurrences, strength, source, is_active, first_seen_at, last_seen_at
		FROM memories
		WHERE user_id = ? AND memory_type = ? AND value = ?
	`, userID, string(value.Kind), encoded)

	mem, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory: %w", err)
	}
	return mem, nil
}

// PromoteSignal turns a counted signal into a durable memory and deletes the
// signal row in the same transaction, so the two never coexist.
func (s *Store) PromoteSignal(ctx context.Context, sig types.Signal, now time.Time) (*types.Memory, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	encoded, err := types.EncodeValue(sig.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode memory value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin promotion: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(now)
	strength := vocab.StrengthForOccurrences(sig.Count)

	// A memory may already exist if a concurrent turn promoted first; fold
	// this sighting in as a reinforcement instead of failing.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories (user_id, memory_type, value, occurrences, strength, source, is_active, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id, memory_type, value) DO UPDATE SET
			occurrences = occurrences + 1,
			strength = `+strengthForNextOccurrence+`,
			is_active = 1,
			last_seen_at = excluded.last_seen_at
	`, sig.UserID, string(sig.Value.Kind), encoded, sig.Count, string(strength), string(vocab.SourceSignalPromotion), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to promote signal: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM signals WHERE id = ?`, sig.ID); err != nil {
		return nil, fmt.Errorf("failed to delete promoted signal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit promotion: %w", err)
	}

	return s.getMemoryLocked(ctx, sig.UserID, sig.Value)
}

// ReinforceMemory bumps occurrences for an existing memory and regrades its
// strength. Returns nil when no such memory exists.
func (s *Store) ReinforceMemory(ctx context.Context, userID string, value types.Value, now time.Time) (*types.Memory, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	encoded, err := types.EncodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode memory value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET
			occurrences = occurrences + 1,
			strength = `+strengthForNextOccurrence+`,
			is_active = 1,
			last_seen_at = ?
		WHERE user_id = ? AND memory_type = ? AND value = ?
	`, formatTime(now), userID, string(value.Kind), encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to reinforce memory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return s.getMemoryLocked(ctx, userID, value)
}

// ListMemories returns a user's memories, most recently seen first.
func (s *Store) ListMemories(ctx context.Context, userID string, activeOnly bool) ([]types.Memory, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, memory_type, value, occurrences, strength, source, is_active, first_seen_at, last_seen_at
		FROM memories
		WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY last_seen_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			logging.StoreWarn("Skipping unreadable memory row: %v", err)
			continue
		}
		memories = append(memories, *mem)
	}
	return memories, rows.Err()
}

func scanMemory(row rowScanner) (*types.Memory, error) {
	var mem types.Memory
	var memoryType, encoded, strength, source, firstSeen, lastSeen string
	var isActive int
	err := row.Scan(&mem.ID, &mem.UserID, &memoryType, &encoded, &mem.Occurrences, &strength, &source, &isActive, &firstSeen, &lastSeen)
	if err != nil {
		return nil, err
	}
	value, err := types.DecodeValue(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode memory value %q: %w", encoded, err)
	}
	mem.Type = value.Kind
	mem.Value = value
	mem.Strength = vocab.MemoryStrength(strength)
	mem.Source = vocab.MemorySource(source)
	mem.IsActive = isActive != 0
	mem.FirstSeenAt = parseTime(firstSeen)
	mem.LastSeenAt = parseTime(lastSeen)
	return &mem, nil
}
