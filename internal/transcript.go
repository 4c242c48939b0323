package internal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Transcript is an append-only, crash-consistent log of timestamped entries
// for a single session. Records are newline-delimited JSON so a truncated
// final record can be detected and discarded on reopen without touching
// prior entries.
type Transcript struct {
	sessionID string
	path      string
	file      *os.File
	next      int64 // sequence assigned to the next appended entry
	count     int64 // complete entries currently in the file
	durable   bool
	closed    bool
}

// OpenTranscript opens or creates the transcript destination for a session.
//
// Reopening an existing file performs read-repair: each line is validated in
// order, a malformed tail (e.g. a half-written last record from a crash) is
// truncated away, and the sequence counter continues from the last complete
// entry. A file whose meta line names a different session is rejected as
// corrupt rather than repaired.
func OpenTranscript(sessionID, projectPath, path string, durable bool) (*Transcript, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	validEnd, lastSeq, err := scanTranscript(sessionID, path)
	if err != nil {
		return nil, err
	}

	if validEnd >= 0 {
		// Drop the malformed tail, keeping every complete record.
		if err := os.Truncate(path, validEnd); err != nil {
			return nil, &IOError{Op: "write", Path: path, Err: err}
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	t := &Transcript{
		sessionID: sessionID,
		path:      path,
		file:      file,
		next:      lastSeq + 1,
		count:     lastSeq,
		durable:   durable,
	}

	if lastSeq == 0 && validEnd <= 0 {
		meta := transcriptMeta{
			Type:        metaRecordType,
			SessionID:   sessionID,
			ProjectPath: projectPath,
			CreatedAt:   time.Now().UTC(),
		}
		if err := t.writeLine(meta); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return t, nil
}

// scanTranscript walks an existing transcript file and returns the byte
// offset where the last complete record ends (-1 when the file is absent or
// empty) together with the highest confirmed sequence number.
func scanTranscript(sessionID, path string) (validEnd int64, lastSeq int64, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return -1, 0, nil
	}
	if err != nil {
		return 0, 0, &IOError{Op: "read", Path: path, Err: err}
	}
	if len(data) == 0 {
		return -1, 0, nil
	}

	var offset int64
	first := true
	for len(data) > 0 {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			// Trailing bytes without a terminator: a partial record.
			break
		}
		line := data[:nl]

		if first {
			var meta transcriptMeta
			if err := json.Unmarshal(line, &meta); err != nil || meta.Type != metaRecordType {
				// No complete meta line means no complete records at all;
				// the whole file is discardable tail.
				return 0, 0, nil
			}
			if meta.SessionID != sessionID {
				return 0, 0, &CorruptError{
					Path:   path,
					Reason: fmt.Sprintf("transcript belongs to session %s, not %s", meta.SessionID, sessionID),
				}
			}
			first = false
		} else {
			var entry TranscriptEntry
			if err := json.Unmarshal(line, &entry); err != nil || entry.Sequence != lastSeq+1 {
				// First bad or out-of-order record: everything from here on
				// is tail.
				return offset, lastSeq, nil
			}
			lastSeq = entry.Sequence
		}

		offset += int64(nl) + 1
		data = data[nl+1:]
	}

	return offset, lastSeq, nil
}

// Append assigns the next sequence number and writes the entry durably before
// returning. A nil error means the entry survives a crash immediately after.
func (t *Transcript) Append(kind EntryKind, payload json.RawMessage) (*TranscriptEntry, error) {
	if t.closed {
		return nil, fmt.Errorf("transcript %s is closed", t.path)
	}
	entry := &TranscriptEntry{
		Sequence:  t.next,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Payload:   payload,
	}
	if err := t.writeLine(entry); err != nil {
		return nil, err
	}
	t.next++
	t.count++
	return entry, nil
}

func (t *Transcript) writeLine(record interface{}) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript record: %w", err)
	}
	if _, err := t.file.Write(append(line, '\n')); err != nil {
		return &IOError{Op: "write", Path: t.path, Err: err}
	}
	if t.durable {
		if err := t.file.Sync(); err != nil {
			return &IOError{Op: "sync", Path: t.path, Err: err}
		}
	}
	return nil
}

// EntryCount returns the number of complete entries written so far.
func (t *Transcript) EntryCount() int64 {
	return t.count
}

// NextSequence returns the sequence number the next append will receive.
func (t *Transcript) NextSequence() int64 {
	return t.next
}

// Path returns the transcript destination path.
func (t *Transcript) Path() string {
	return t.path
}

// Close releases the destination. Content is never deleted.
func (t *Transcript) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.file.Close(); err != nil {
		return &IOError{Op: "close", Path: t.path, Err: err}
	}
	return nil
}

// ReadTranscriptEntries reads every complete entry from a transcript file,
// tolerating a malformed tail the same way reopening does. Used by the show,
// export and watch commands, which read transcripts they do not hold open.
func ReadTranscriptEntries(path string) ([]TranscriptEntry, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	var entries []TranscriptEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if first {
			first = false
			var meta transcriptMeta
			if err := json.Unmarshal(line, &meta); err == nil && meta.Type == metaRecordType {
				continue
			}
			// Fall through: a transcript without a meta line is still
			// readable entry by entry.
		}
		var entry TranscriptEntry
		if err := json.Unmarshal(line, &entry); err != nil || entry.Sequence == 0 {
			break
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return entries, nil
}

// CountTranscriptEntries returns the number of complete entries in a
// transcript file, or 0 when the file is missing.
func CountTranscriptEntries(path string) int64 {
	entries, err := ReadTranscriptEntries(path)
	if err != nil {
		return 0
	}
	return int64(len(entries))
}
