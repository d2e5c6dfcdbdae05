package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forge/internal/types"
)

// GetUserMemoryState loads a user's consolidated state document. A missing
// row yields a fresh empty state, never an error.
func (s *Store) GetUserMemoryState(ctx context.Context, userID string) (*types.UserMemoryState, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT state_json FROM user_memory_state WHERE user_id = ?
	`, userID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewUserMemoryState(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory state: %w", err)
	}

	state := types.NewUserMemoryState(userID)
	if err := json.Unmarshal([]byte(doc), state); err != nil {
		return nil, fmt.Errorf("failed to decode memory state: %w", err)
	}
	state.UserID = userID
	state.Coerce()
	return state, nil
}

// PutUserMemoryState writes a user's state document, coercing it to its
// bounds first.
func (s *Store) PutUserMemoryState(ctx context.Context, state *types.UserMemoryState) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if state.UserID == "" {
		return fmt.Errorf("memory state requires a user id")
	}

	state.Coerce()
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode memory state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_memory_state (user_id, state_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`, state.UserID, string(doc), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to write memory state: %w", err)
	}
	return nil
}
