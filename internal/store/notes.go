package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"forge/internal/logging"
	"forge/internal/types"
)

// InsertSessionNote stores a conversation-scoped note and fills in its row id.
func (s *Store) InsertSessionNote(ctx context.Context, note *types.SessionNote) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var expires interface{}
	if note.ExpiresAt != nil {
		expires = formatTime(*note.ExpiresAt)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO session_notes (user_id, conversation_id, text, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.UserID, note.ConversationID, note.Text, formatTime(note.CreatedAt), expires)
	if err != nil {
		return fmt.Errorf("failed to insert session note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read note id: %w", err)
	}
	note.ID = id
	return nil
}

// ListSessionNotes returns a conversation's notes in creation order,
// excluding any whose expiry has passed.
func (s *Store) ListSessionNotes(ctx context.Context, userID, conversationID string, now time.Time) ([]types.SessionNote, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, conversation_id, text, created_at, expires_at
		FROM session_notes
		WHERE user_id = ? AND conversation_id = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at ASC, id ASC
	`, userID, conversationID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list session notes: %w", err)
	}
	defer rows.Close()

	var notes []types.SessionNote
	for rows.Next() {
		var note types.SessionNote
		var createdAt string
		var expiresAt sql.NullString
		if err := rows.Scan(&note.ID, &note.UserID, &note.ConversationID, &note.Text, &createdAt, &expiresAt); err != nil {
			logging.StoreWarn("Skipping unreadable session note: %v", err)
			continue
		}
		note.CreatedAt = parseTime(createdAt)
		if expiresAt.Valid {
			t := parseTime(expiresAt.String)
			note.ExpiresAt = &t
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// DeleteSessionNotes removes the given note rows, typically after the
// consolidator has folded them into the user's global state.
func (s *Store) DeleteSessionNotes(ctx context.Context, ids []int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_notes WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete session notes: %w", err)
	}
	return nil
}

// SweepExpiredSessionNotes deletes notes whose expiry has passed and
// returns how many rows were removed.
func (s *Store) SweepExpiredSessionNotes(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM session_notes WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired notes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		logging.Store("Swept %d expired session note(s)", affected)
	}
	return affected, nil
}
