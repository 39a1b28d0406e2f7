package internal

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists session snapshots in a local SQLite database. The snapshot
// column is the state serialized wholesale; the store never looks inside it.
type Store struct {
	db *sql.DB
}

// SessionEntry is one row of the session index.
type SessionEntry struct {
	ID           string
	Workspace    string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OpenStore opens (creating if needed) the session database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Err: err}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		workspace TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		snapshot TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Err: err}
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts a session snapshot under id.
func (s *Store) Save(id string, state State) error {
	snapshot, err := MarshalSnapshot(state)
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}

	now := time.Now().UnixMilli()
	query := `
	INSERT INTO sessions (id, workspace, message_count, snapshot, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		workspace = excluded.workspace,
		message_count = excluded.message_count,
		snapshot = excluded.snapshot,
		updated_at = excluded.updated_at`
	if _, err := s.db.Exec(query, id, state.WorkspaceRoot, len(state.Transcript), string(snapshot), now, now); err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}

// Load restores the snapshot stored under id verbatim.
func (s *Store) Load(id string) (State, error) {
	var snapshot string
	row := s.db.QueryRow("SELECT snapshot FROM sessions WHERE id = ?", id)
	if err := row.Scan(&snapshot); err != nil {
		return State{}, &StoreError{Op: "load", Err: err}
	}
	state, err := UnmarshalSnapshot([]byte(snapshot))
	if err != nil {
		return State{}, &StoreError{Op: "load", Err: err}
	}
	return state, nil
}

// List returns the session index, most recently updated first.
func (s *Store) List() ([]SessionEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, workspace, message_count, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var entries []SessionEntry
	for rows.Next() {
		var entry SessionEntry
		var created, updated int64
		if err := rows.Scan(&entry.ID, &entry.Workspace, &entry.MessageCount, &created, &updated); err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		entry.CreatedAt = time.UnixMilli(created)
		entry.UpdatedAt = time.UnixMilli(updated)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return entries, nil
}

// Delete removes a stored session. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}
