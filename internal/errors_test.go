package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCorruptError(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	err := &CorruptError{Path: "/store/sessions/x/session.json", Reason: "invalid record", Err: inner}

	if !strings.Contains(err.Error(), "invalid record") {
		t.Errorf("Error() = %q, want reason included", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is() did not reach the wrapped error")
	}
	if !IsCorrupt(err) {
		t.Error("IsCorrupt() = false for CorruptError")
	}
	if !IsCorrupt(fmt.Errorf("while loading: %w", err)) {
		t.Error("IsCorrupt() = false for wrapped CorruptError")
	}
}

func TestCorruptError_NoInner(t *testing.T) {
	err := &CorruptError{Path: "/x", Reason: "checksum mismatch"}
	if err.Unwrap() != nil {
		t.Error("Unwrap() != nil for errorless corruption")
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIOError(t *testing.T) {
	inner := errors.New("disk full")
	err := &IOError{Op: "write", Path: "/store/x", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is() did not reach the wrapped error")
	}
	if IsCorrupt(err) {
		t.Error("IsCorrupt() = true for IOError")
	}
	for _, want := range []string{"write", "/store/x", "disk full"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error() = %q, want %q included", err.Error(), want)
		}
	}
}

func TestSentinels_Distinct(t *testing.T) {
	if errors.Is(ErrNotFound, ErrBusy) || errors.Is(ErrBusy, ErrNotFound) {
		t.Error("sentinel errors are not distinct")
	}
}
