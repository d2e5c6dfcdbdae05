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

// SightingResult reports what a signal sighting did to the counter.
type SightingResult struct {
	Signal types.Signal
	// Counted is false when the sighting arrived from the conversation
	// that already counted this value, in which case nothing changed.
	Counted bool
}

// RecordSignalSighting creates or increments the signal for (userID, value).
// The increment and the double-count guard execute in one statement, so two
// concurrent turns from the same conversation cannot count twice.
func (s *Store) RecordSignalSighting(ctx context.Context, userID, conversationID string, value types.Value, now time.Time, ttl time.Duration) (SightingResult, error) {
	if s == nil || s.db == nil {
		return SightingResult{}, fmt.Errorf("store not initialized")
	}
	encoded, err := types.EncodeValue(value)
	if err != nil {
		return SightingResult{}, fmt.Errorf("failed to encode signal value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := formatTime(now)
	expires := formatTime(now.Add(ttl))

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (user_id, signal_type, value, count, last_conversation_id, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(user_id, signal_type, value) DO UPDATE SET
			count = count + 1,
			last_conversation_id = excluded.last_conversation_id,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
		WHERE signals.last_conversation_id != excluded.last_conversation_id
	`, userID, string(value.Kind), encoded, conversationID, expires, ts, ts)
	if err != nil {
		return SightingResult{}, fmt.Errorf("failed to record signal sighting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return SightingResult{}, fmt.Errorf("failed to read rows affected: %w", err)
	}

	sig, err := s.getSignalLocked(ctx, userID, value)
	if err != nil {
		return SightingResult{}, err
	}
	return SightingResult{Signal: *sig, Counted: affected > 0}, nil
}

// GetSignal returns the signal row for (userID, value), or nil when absent.
func (s *Store) GetSignal(ctx context.Context, userID string, value types.Value) (*types.Signal, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSignalLocked(ctx, userID, value)
}

func (s *Store) getSignalLocked(ctx context.Context, userID string, value types.Value) (*types.Signal, error) {
	encoded, err := types.EncodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signal value: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, signal_type, value, count, last_conversation_id, expires_at, created_at, updated_at
		FROM signals
		WHERE user_id = ? AND signal_type = ? AND value = ?
	`, userID, string(value.Kind), encoded)

	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read signal: %w", err)
	}
	return sig, nil
}

// DeleteSignal removes the signal row for (userID, value).
func (s *Store) DeleteSignal(ctx context.Context, userID string, value types.Value) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	encoded, err := types.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("failed to encode signal value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM signals WHERE user_id = ? AND signal_type = ? AND value = ?
	`, userID, string(value.Kind), encoded)
	if err != nil {
		return fmt.Errorf("failed to delete signal: %w", err)
	}
	return nil
}

// ListSignals returns all signal rows for a user, newest update first.
func (s *Store) ListSignals(ctx context.Context, userID string) ([]types.Signal, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, signal_type, value, count, last_conversation_id, expires_at, created_at, updated_at
		FROM signals
		WHERE user_id = ?
		ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()

	var signals []types.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			logging.StoreWarn("Skipping unreadable signal row: %v", err)
			continue
		}
		signals = append(signals, *sig)
	}
	return signals, rows.Err()
}

// SweepExpiredSignals deletes every signal whose TTL elapsed before now and
// returns how many rows were removed.
func (s *Store) SweepExpiredSignals(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}
	timer := logging.StartTimer(logging.CategoryStore, "SweepExpiredSignals")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM signals WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired signals: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		logging.Store("Swept %d expired signal(s)", affected)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*types.Signal, error) {
	var sig types.Signal
	var signalType, encoded, expiresAt, createdAt, updatedAt string
	err := row.Scan(&sig.ID, &sig.UserID, &signalType, &encoded, &sig.Count, &sig.LastConversationID, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	value, err := types.DecodeValue(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signal value %q: %w", encoded, err)
	}
	sig.Type = value.Kind
	sig.Value = value
	sig.ExpiresAt = parseTime(expiresAt)
	sig.CreatedAt = parseTime(createdAt)
	sig.UpdatedAt = parseTime(updatedAt)
	return &sig, nil
}
