// Package store implements SQLite persistence for signals, memories,
// artifacts, embeddings, session notes, and the per-user memory state
// document. One Store owns one database handle; writes serialize through a
// single connection plus a mutex, and every timestamp is written explicitly
// in a fixed-width UTC format so string comparison matches time order.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"forge/internal/logging"
)

// EmbeddingScanCap bounds how many stored vectors a similarity search will
// scan. This is a correctness-relevant contract: artifacts outside the most
// recent EmbeddingScanCap embeddable rows are invisible to vector search
// until the corpus shrinks or an indexed build (sqlite_vec tag) is used.
const EmbeddingScanCap = 500

// sqliteTimeFormat is fixed width so lexicographic comparison in SQL
// matches chronological order.
const sqliteTimeFormat = "2006-01-02 15:04:05.000"

// Store owns the SQLite database for the memory engine.
type Store struct {
	db        *sql.DB
	mu        sync.RWMutex
	dbPath    string
	vectorExt bool
}

// New opens (creating if needed) the database at path and initializes the
// schema.
func New(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "New")
	defer timer.Stop()

	logging.Store("Initializing store at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("Failed to enable foreign keys: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.detectVecExtension()
	if s.vectorExt {
		logging.Store("sqlite-vec extension detected, vector search is indexed")
	} else {
		logging.StoreDebug("sqlite-vec not available, vector search scans up to %d rows", EmbeddingScanCap)
	}

	logging.Store("Store initialization complete")
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	signalsTable := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		value TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 1,
		last_conversation_id TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, signal_type, value)
	);
	CREATE INDEX IF NOT EXISTS idx_signals_user ON signals(user_id);
	CREATE INDEX IF NOT EXISTS idx_signals_expires ON signals(expires_at);
	`

	memoriesTable := `
	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		value TEXT NOT NULL,
		occurrences INTEGER NOT NULL DEFAULT 1,
		strength TEXT NOT NULL,
		source TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		first_seen_at TEXT NOT NULL,
		last_seen_at TEXT NOT NULL,
		UNIQUE(user_id, memory_type, value)
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, is_active);
	`

	artifactsTable := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		group_id TEXT NOT NULL DEFAULT '',
		conversation_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		artifact_type TEXT NOT NULL,
		scope TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		scripture_refs TEXT NOT NULL DEFAULT '[]',
		tags TEXT NOT NULL DEFAULT '[]',
		metadata TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'active',
		embedding_status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_user ON artifacts(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_artifacts_type ON artifacts(artifact_type);
	CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);
	`

	edgesTable := `
	CREATE TABLE IF NOT EXISTS artifact_edges (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		relation TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY(from_id, to_id, relation)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON artifact_edges(to_id);
	`

	embeddingsTable := `
	CREATE TABLE IF NOT EXISTS artifact_embeddings (
		artifact_id TEXT NOT NULL,
		model TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY(artifact_id, model)
	);
	`

	notesTable := `
	CREATE TABLE IF NOT EXISTS session_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_notes_user_conv ON session_notes(user_id, conversation_id);
	`

	stateTable := `
	CREATE TABLE IF NOT EXISTS user_memory_state (
		user_id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	for _, table := range []string{
		signalsTable,
		memoriesTable,
		artifactsTable,
		edgesTable,
		embeddingsTable,
		notesTable,
		stateTable,
	} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("Closing store database connection")
	return s.db.Close()
}

// detectVecExtension probes for vec0 virtual table support.
func (s *Store) detectVecExtension() {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		s.vectorExt = true
		_, _ = s.db.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	s.vectorExt = false
}

// VectorIndexed reports whether vector search runs through sqlite-vec.
func (s *Store) VectorIndexed() bool {
	return s.vectorExt
}

// Stats returns per-table row counts.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Stats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	tables := []string{"signals", "memories", "artifacts", "artifact_edges", "artifact_embeddings", "session_notes", "user_memory_state"}

	for _, table := range tables {
		var count int64
		err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			logging.StoreDebug("Table %s count failed: %v", table, err)
			continue
		}
		stats[table] = count
	}

	return stats, nil
}

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

// parseTime reads a stored timestamp, tolerating the second-precision form
// SQLite's CURRENT_TIMESTAMP produces.
func parseTime(s string) time.Time {
	if t, err := time.Parse(sqliteTimeFormat, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t.UTC()
}
