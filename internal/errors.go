package internal

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable conditions callers are expected to
// branch on.
var (
	// ErrNotFound indicates that no session record exists for the requested ID.
	ErrNotFound = errors.New("session not found")

	// ErrBusy indicates that another live process holds the session lock.
	ErrBusy = errors.New("session is locked by another process")
)

// CorruptError represents a stored record that failed structural validation
// (truncated write, bad JSON, checksum mismatch). It is recoverable: callers
// skip the bad record or discard the bad tail rather than failing the store.
type CorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt record %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt record %s: %s", e.Path, e.Reason)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// IOError represents an underlying storage failure. It is fatal and surfaced
// verbatim.
type IOError struct {
	Op   string // "open", "read", "write", "rename", "sync"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is (or wraps) a CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}
