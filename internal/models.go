package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SessionSchemaVersion is the on-disk schema version for session records.
const SessionSchemaVersion = 1

// Session represents one persisted, resumable unit of conversational state
// bound to a project directory.
type Session struct {
	ID             string    `json:"id"`
	ProjectPath    string    `json:"project_path"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Snapshot       []byte    `json:"snapshot,omitempty"`
	SnapshotSHA256 string    `json:"snapshot_sha256"`
	TranscriptPath string    `json:"transcript_path"`
	SchemaVersion  int       `json:"schema_version"`
}

// EntryKind classifies a transcript entry.
type EntryKind string

const (
	EntryInput  EntryKind = "input"
	EntryOutput EntryKind = "output"
	EntrySystem EntryKind = "system"
)

// TranscriptEntry is one immutable record of an observable event within a
// run. Entries are append-only; sequence numbers are gapless starting at 1.
type TranscriptEntry struct {
	Sequence  int64           `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      EntryKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// transcriptMeta is the first line of every transcript file. It binds the
// file to its session so a reopened transcript can be validated.
type transcriptMeta struct {
	Type        string    `json:"type"` // always "session_meta"
	SessionID   string    `json:"session_id"`
	ProjectPath string    `json:"project_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const metaRecordType = "session_meta"

// SnapshotChecksum returns the hex SHA-256 of a snapshot payload. The empty
// snapshot has a well-defined checksum so every record carries one.
func SnapshotChecksum(snapshot []byte) string {
	sum := sha256.Sum256(snapshot)
	return hex.EncodeToString(sum[:])
}

// Validate performs the structural checks a record must pass before it is
// trusted: identity fields present, timestamps sane, snapshot checksum
// matching.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("missing session id")
	}
	if s.ProjectPath == "" {
		return fmt.Errorf("missing project path")
	}
	if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
		return fmt.Errorf("missing timestamps")
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return fmt.Errorf("updated_at precedes created_at")
	}
	if got := SnapshotChecksum(s.Snapshot); got != s.SnapshotSHA256 {
		return fmt.Errorf("snapshot checksum mismatch: record says %s, payload is %s", s.SnapshotSHA256, got)
	}
	return nil
}
