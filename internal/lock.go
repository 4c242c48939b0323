package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LockFileName is the lock file kept inside a session directory while a
// holder is live.
const LockFileName = "session.lock"

// LockToken is the liveness record a holder writes into the lock file. A
// second process decides between Busy and reclaim by reading it: a token
// whose refreshed_at is older than the staleness threshold marks a holder
// presumed dead.
type LockToken struct {
	PID         int       `json:"pid"`
	Hostname    string    `json:"hostname"`
	Token       string    `json:"token"`
	AcquiredAt  time.Time `json:"acquired_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Lock represents exclusive access to one session directory. It is advisory:
// only cooperating codex processes honor it.
type Lock struct {
	path      string
	token     string
	reclaimed bool
	released  bool
}

// AcquireLock attempts to take the session lock without blocking. It returns
// ErrBusy when another live holder exists. A lock whose holder token exceeds
// staleAfter is removed and re-acquired; Reclaimed reports when that
// happened so callers can log the abandoned run.
func AcquireLock(sessionDir string, staleAfter time.Duration) (*Lock, error) {
	path := filepath.Join(sessionDir, LockFileName)

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			lock := &Lock{path: path, token: uuid.NewString(), reclaimed: attempt > 0}
			now := time.Now().UTC()
			tok := LockToken{
				PID:         os.Getpid(),
				Hostname:    hostname(),
				Token:       lock.token,
				AcquiredAt:  now,
				RefreshedAt: now,
			}
			data, marshalErr := json.Marshal(tok)
			if marshalErr == nil {
				_, _ = file.Write(append(data, '\n'))
				_ = file.Sync()
			}
			_ = file.Close()
			return lock, nil
		}
		if !os.IsExist(err) {
			return nil, &IOError{Op: "open", Path: path, Err: err}
		}
		if !lockIsStale(path, staleAfter) {
			return nil, ErrBusy
		}
		// Stale holder: remove and retry once. A racing reclaimer may win
		// the re-create, in which case the second attempt reports Busy.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, &IOError{Op: "remove", Path: path, Err: err}
		}
	}
	return nil, ErrBusy
}

// lockIsStale reports whether the lock file at path records a holder older
// than staleAfter. A lock file that cannot be parsed falls back to its
// modification time, so a torn lock write from a crashed process still ages
// out.
func lockIsStale(path string, staleAfter time.Duration) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// Vanished between the create attempt and now; the retry will see.
		return os.IsNotExist(err)
	}

	var tok LockToken
	if err := json.Unmarshal(data, &tok); err == nil {
		ref := tok.RefreshedAt
		if ref.IsZero() {
			ref = tok.AcquiredAt
		}
		if !ref.IsZero() {
			return time.Since(ref) > staleAfter
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}
	return time.Since(info.ModTime()) > staleAfter
}

// Reclaimed reports whether acquiring this lock required removing a stale
// holder, i.e. the previous run was abandoned.
func (l *Lock) Reclaimed() bool {
	return l.reclaimed
}

// Refresh rewrites the holder's liveness timestamp. It returns ErrBusy when
// the lock file no longer carries this holder's token, meaning the lock aged
// out and another process reclaimed it.
func (l *Lock) Refresh() error {
	if l.released {
		return fmt.Errorf("lock %s already released", l.path)
	}
	current, err := l.readToken()
	if err != nil {
		return err
	}
	if current == nil || current.Token != l.token {
		return ErrBusy
	}

	current.RefreshedAt = time.Now().UTC()
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal lock token: %w", err)
	}
	// Atomic replace so a concurrent staleness probe never reads a torn
	// token.
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".lock-*")
	if err != nil {
		return &IOError{Op: "open", Path: l.path, Err: err}
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return &IOError{Op: "write", Path: l.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return &IOError{Op: "close", Path: l.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		_ = os.Remove(tmp.Name())
		return &IOError{Op: "rename", Path: l.path, Err: err}
	}
	return nil
}

// Release removes the lock file. It is idempotent: releasing an
// already-released, expired, or reclaimed lock is a no-op.
func (l *Lock) Release() error {
	if l.released {
		return nil
	}
	l.released = true

	current, err := l.readToken()
	if err != nil {
		return err
	}
	if current == nil || current.Token != l.token {
		// Expired and reclaimed by someone else; their lock is not ours to
		// remove.
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: "remove", Path: l.path, Err: err}
	}
	return nil
}

func (l *Lock) readToken() (*LockToken, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: l.path, Err: err}
	}
	var tok LockToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, nil
	}
	return &tok, nil
}

// LockState classifies a session directory for listings: "live" when a
// fresh lock is held, "stale" when a lock exists but its holder aged out,
// "idle" when no lock is present.
func LockState(sessionDir string, staleAfter time.Duration) string {
	path := filepath.Join(sessionDir, LockFileName)
	if _, err := os.Stat(path); err != nil {
		return "idle"
	}
	if lockIsStale(path, staleAfter) {
		return "stale"
	}
	return "live"
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
