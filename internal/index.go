package internal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// IndexFileName is the sqlite cache kept in the store root.
const IndexFileName = "index.db"

// IndexEntry is one row of the session index.
type IndexEntry struct {
	ID             string
	ProjectPath    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EntryCount     int64
	TranscriptPath string
}

// SessionIndex is a rebuildable sqlite cache over the per-session JSON
// records. The records stay the source of truth; the index only accelerates
// listing and resolution, and every failure degrades to a directory scan.
type SessionIndex struct {
	db *sql.DB
}

// OpenSessionIndex opens (creating if needed) the index database.
func OpenSessionIndex(path string) (*SessionIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index database ping failed: %w", err)
	}

	createSQL := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		project_path TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		entry_count INTEGER NOT NULL DEFAULT 0,
		transcript_path TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_path, updated_at DESC);`
	if _, err := db.Exec(createSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create index schema: %w", err)
	}

	return &SessionIndex{db: db}, nil
}

// Upsert inserts or replaces the row for a session. entryCount < 0 preserves
// the previously recorded count.
func (ix *SessionIndex) Upsert(sess *Session, entryCount int64) error {
	if entryCount < 0 {
		var prev int64
		err := ix.db.QueryRow("SELECT entry_count FROM sessions WHERE id = ?", sess.ID).Scan(&prev)
		if err == nil {
			entryCount = prev
		} else {
			entryCount = 0
		}
	}
	_, err := ix.db.Exec(`
		INSERT INTO sessions (id, project_path, created_at, updated_at, entry_count, transcript_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_path = excluded.project_path,
			updated_at = excluded.updated_at,
			entry_count = excluded.entry_count,
			transcript_path = excluded.transcript_path`,
		sess.ID,
		sess.ProjectPath,
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
		entryCount,
		sess.TranscriptPath,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert index row: %w", err)
	}
	return nil
}

// ListForProject returns index rows for a project ordered by updated_at
// descending, entry_count breaking ties.
func (ix *SessionIndex) ListForProject(projectPath string) ([]IndexEntry, error) {
	rows, err := ix.db.Query(`
		SELECT id, project_path, created_at, updated_at, entry_count, transcript_path
		FROM sessions WHERE project_path = ?
		ORDER BY updated_at DESC, entry_count DESC`, projectPath)
	if err != nil {
		return nil, fmt.Errorf("index query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanIndexRows(rows)
}

// ListAll returns every indexed session ordered by updated_at descending.
func (ix *SessionIndex) ListAll() ([]IndexEntry, error) {
	rows, err := ix.db.Query(`
		SELECT id, project_path, created_at, updated_at, entry_count, transcript_path
		FROM sessions ORDER BY updated_at DESC, entry_count DESC`)
	if err != nil {
		return nil, fmt.Errorf("index query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanIndexRows(rows)
}

func scanIndexRows(rows *sql.Rows) ([]IndexEntry, error) {
	var entries []IndexEntry
	for rows.Next() {
		var entry IndexEntry
		var created, updated string
		if err := rows.Scan(&entry.ID, &entry.ProjectPath, &created, &updated, &entry.EntryCount, &entry.TranscriptPath); err != nil {
			return nil, fmt.Errorf("index scan failed: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index rows iteration error: %w", err)
	}
	return entries, nil
}

// Rebuild replaces the index content wholesale from a fresh scan of the
// session records.
func (ix *SessionIndex) Rebuild(entries []IndexEntry) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index rebuild: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear index: %w", err)
	}
	for _, entry := range entries {
		_, err := tx.Exec(`
			INSERT INTO sessions (id, project_path, created_at, updated_at, entry_count, transcript_path)
			VALUES (?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.ProjectPath,
			entry.CreatedAt.UTC().Format(time.RFC3339Nano),
			entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
			entry.EntryCount,
			entry.TranscriptPath,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert index row: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (ix *SessionIndex) Close() error {
	return ix.db.Close()
}
