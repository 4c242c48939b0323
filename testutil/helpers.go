package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// CreateTempDir creates a temporary directory that is removed when the test
// finishes.
func CreateTempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// CreateProjectDir creates a fake project directory under a temp root and
// returns its path.
func CreateProjectDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "project")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create project dir: %v", err)
	}
	return dir
}

// TruncateTail removes the last n bytes of a file, simulating a crash in the
// middle of a write.
func TruncateTail(t *testing.T, path string, n int64) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat %s: %v", path, err)
	}
	if info.Size() < n {
		t.Fatalf("Cannot truncate %d bytes from %d-byte file %s", n, info.Size(), path)
	}
	if err := os.Truncate(path, info.Size()-n); err != nil {
		t.Fatalf("Failed to truncate %s: %v", path, err)
	}
}

// AppendRaw appends raw bytes to a file, bypassing any record framing.
func AppendRaw(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Failed to append to %s: %v", path, err)
	}
}

// WriteLockFixture writes a session.lock file whose holder token was last
// refreshed the given age ago.
func WriteLockFixture(t *testing.T, sessionDir string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		t.Fatalf("Failed to create session dir: %v", err)
	}
	stamp := time.Now().Add(-age).UTC()
	token := map[string]interface{}{
		"pid":          99999,
		"hostname":     "fixture-host",
		"token":        "fixture-token",
		"acquired_at":  stamp,
		"refreshed_at": stamp,
	}
	data, err := json.Marshal(token)
	if err != nil {
		t.Fatalf("Failed to marshal lock fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "session.lock"), append(data, '\n'), 0600); err != nil {
		t.Fatalf("Failed to write lock fixture: %v", err)
	}
}
