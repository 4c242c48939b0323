package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sessionsDirName   = "sessions"
	stateDirName      = "state"
	sessionFileName   = "session.json"
	transcriptName    = "transcript.jsonl"
	lastSessionIDFile = "last_session_id"
)

// SessionStore owns the on-disk representation of Session records under a
// store root:
//
//	<root>/sessions/<id>/session.json
//	<root>/sessions/<id>/transcript.jsonl
//	<root>/state/last_session_id
//	<root>/index.db
//
// Record writes are write-to-temp-then-rename so a crash mid-save is never
// observable as a valid record.
type SessionStore struct {
	root  string
	index *SessionIndex // nil when the index database is unavailable
}

// OpenStore opens (creating if needed) a session store rooted at root. An
// unusable index database is downgraded to a warning; the store works from
// directory scans alone.
func OpenStore(root string) (*SessionStore, error) {
	for _, dir := range []string{root, filepath.Join(root, sessionsDirName), filepath.Join(root, stateDirName)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &IOError{Op: "open", Path: dir, Err: err}
		}
	}

	store := &SessionStore{root: root}
	index, err := OpenSessionIndex(filepath.Join(root, IndexFileName))
	if err != nil {
		LogWarn("Session index unavailable, falling back to scans: %v", err)
	} else {
		store.index = index
	}
	return store, nil
}

// Root returns the store root directory.
func (s *SessionStore) Root() string {
	return s.root
}

// SessionDir returns the directory holding one session's record set.
func (s *SessionStore) SessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionsDirName, sessionID)
}

func (s *SessionStore) sessionRecordPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), sessionFileName)
}

// TranscriptPath returns the default transcript destination for a session.
func (s *SessionStore) TranscriptPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), transcriptName)
}

// Create allocates a new session for a project directory and writes its
// initial record.
func (s *SessionStore) Create(projectPath string) (*Session, error) {
	canon, err := CanonicalProjectPath(projectPath)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:             uuid.NewString(),
		ProjectPath:    canon,
		CreatedAt:      now,
		UpdatedAt:      now,
		SnapshotSHA256: SnapshotChecksum(nil),
		SchemaVersion:  SessionSchemaVersion,
	}
	sess.TranscriptPath = s.TranscriptPath(sess.ID)

	if err := os.MkdirAll(s.SessionDir(sess.ID), 0755); err != nil {
		return nil, &IOError{Op: "open", Path: s.SessionDir(sess.ID), Err: err}
	}
	if err := s.writeRecord(sess); err != nil {
		return nil, err
	}
	s.updateIndex(sess, 0)

	LogDebug("Created session %s for %s", sess.ID, canon)
	return sess, nil
}

// Load reads and validates one session record. It returns ErrNotFound when
// no record exists and a CorruptError when the record fails structural
// validation.
func (s *SessionStore) Load(sessionID string) (*Session, error) {
	path := s.sessionRecordPath(sessionID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, &CorruptError{Path: path, Reason: "invalid JSON", Err: err}
	}
	if sess.ID != sessionID {
		return nil, &CorruptError{Path: path, Reason: fmt.Sprintf("record id %q does not match directory %q", sess.ID, sessionID)}
	}
	if err := sess.Validate(); err != nil {
		return nil, &CorruptError{Path: path, Reason: "validation failed", Err: err}
	}
	return &sess, nil
}

// Save atomically replaces the session's snapshot wholesale and bumps
// UpdatedAt. UpdatedAt only ever advances, even against a clock that stepped
// backwards.
func (s *SessionStore) Save(sess *Session, snapshot []byte) error {
	sess.Snapshot = append([]byte(nil), snapshot...)
	if len(sess.Snapshot) == 0 {
		sess.Snapshot = nil
	}
	sess.SnapshotSHA256 = SnapshotChecksum(sess.Snapshot)

	now := time.Now().UTC()
	if !now.After(sess.UpdatedAt) {
		now = sess.UpdatedAt.Add(time.Nanosecond)
	}
	sess.UpdatedAt = now

	if err := s.writeRecord(sess); err != nil {
		return err
	}
	s.updateIndex(sess, -1)
	return nil
}

// writeRecord persists a record via temp-file-then-rename in the session's
// own directory, so the rename is atomic on every filesystem that matters.
func (s *SessionStore) writeRecord(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	dir := s.SessionDir(sess.ID)
	final := s.sessionRecordPath(sess.ID)

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return &IOError{Op: "open", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &IOError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "rename", Path: final, Err: err}
	}
	return nil
}

// ListForProject returns every structurally valid session for a project,
// ordered by UpdatedAt descending. Invalid records are skipped with a
// warning; listing never fails because one record is bad.
func (s *SessionStore) ListForProject(projectPath string) ([]*Session, error) {
	canon, err := CanonicalProjectPath(projectPath)
	if err != nil {
		return nil, err
	}

	all, err := s.scanSessions()
	if err != nil {
		return nil, err
	}

	var sessions []*Session
	for _, sess := range all {
		if sess.ProjectPath == canon {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// ListAll returns every structurally valid session in the store, newest
// first.
func (s *SessionStore) ListAll() ([]*Session, error) {
	sessions, err := s.scanSessions()
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *SessionStore) scanSessions() ([]*Session, error) {
	dir := filepath.Join(s.root, sessionsDirName)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: dir, Err: err}
	}

	var sessions []*Session
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sess, err := s.Load(entry.Name())
		if err != nil {
			// Per-record failures degrade to warnings so one bad record
			// never blocks the store.
			LogWarn("Skipping session %s: %v", entry.Name(), err)
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// liveSessionFor reports whether any session for the project currently holds
// a non-stale lock, returning its ID when one does.
func (s *SessionStore) liveSessionFor(projectPath string, staleAfter time.Duration) (string, bool) {
	sessions, err := s.ListForProject(projectPath)
	if err != nil {
		return "", false
	}
	for _, sess := range sessions {
		if LockState(s.SessionDir(sess.ID), staleAfter) == "live" {
			return sess.ID, true
		}
	}
	return "", false
}

// Index returns the sqlite index, or nil when it is unavailable.
func (s *SessionStore) Index() *SessionIndex {
	return s.index
}

// updateIndex is best effort: the index is a cache and a failed update only
// costs a later scan.
func (s *SessionStore) updateIndex(sess *Session, entryCount int64) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(sess, entryCount); err != nil {
		LogWarn("Failed to update session index for %s: %v", sess.ID, err)
	}
}

// SetEntryCount records a session's transcript entry count in the index.
func (s *SessionStore) SetEntryCount(sess *Session, entryCount int64) {
	s.updateIndex(sess, entryCount)
}

// RebuildIndex repopulates the sqlite index from a full scan of the session
// records.
func (s *SessionStore) RebuildIndex() error {
	if s.index == nil {
		return fmt.Errorf("session index unavailable")
	}
	sessions, err := s.ListAll()
	if err != nil {
		return err
	}
	entries := make([]IndexEntry, 0, len(sessions))
	for _, sess := range sessions {
		entries = append(entries, IndexEntry{
			ID:             sess.ID,
			ProjectPath:    sess.ProjectPath,
			CreatedAt:      sess.CreatedAt,
			UpdatedAt:      sess.UpdatedAt,
			EntryCount:     CountTranscriptEntries(sess.TranscriptPath),
			TranscriptPath: sess.TranscriptPath,
		})
	}
	return s.index.Rebuild(entries)
}

// lastSessionIDPath is the auto-resume pointer updated after every run.
func (s *SessionStore) lastSessionIDPath() string {
	return filepath.Join(s.root, stateDirName, lastSessionIDFile)
}

// ReadLastSessionID returns the most recently recorded session ID, or ""
// when none has been recorded.
func (s *SessionStore) ReadLastSessionID() string {
	data, err := os.ReadFile(s.lastSessionIDPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// RecordLastSessionID atomically updates the auto-resume pointer.
func (s *SessionStore) RecordLastSessionID(sessionID string) error {
	dir := filepath.Join(s.root, stateDirName)
	tmp, err := os.CreateTemp(dir, ".last-*")
	if err != nil {
		return &IOError{Op: "open", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(sessionID + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, s.lastSessionIDPath()); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "rename", Path: s.lastSessionIDPath(), Err: err}
	}
	return nil
}

// Close releases the index database handle.
func (s *SessionStore) Close() error {
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
