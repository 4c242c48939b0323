package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// CanonicalProjectPath resolves a project directory to the canonical absolute
// form sessions are keyed by. Symlinks are resolved when the path exists;
// a nonexistent path is still canonicalized lexically so callers can key
// sessions before the directory is created.
func CanonicalProjectPath(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project path %q: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Clean(abs), nil
}

// DefaultStoreRoot derives the session-store root for a project when the user
// does not pass --session-store: a per-project directory under the user cache
// dir, keyed by a short hash of the canonical project path.
func DefaultStoreRoot(projectPath string) (string, error) {
	canon, err := CanonicalProjectPath(projectPath)
	if err != nil {
		return "", err
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache dir: %w", err)
	}
	sum := sha256.Sum256([]byte(canon))
	return filepath.Join(cacheDir, "codex", "store-"+hex.EncodeToString(sum[:])[:12]), nil
}
