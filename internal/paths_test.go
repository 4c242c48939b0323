package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kudige/codex/testutil"
)

func TestCanonicalProjectPath(t *testing.T) {
	dir := testutil.CreateTempDir(t)

	canon, err := CanonicalProjectPath(dir + "/./sub/..")
	if err != nil {
		t.Fatalf("CanonicalProjectPath() error = %v", err)
	}
	want, err := CanonicalProjectPath(dir)
	if err != nil {
		t.Fatal(err)
	}
	if canon != want {
		t.Errorf("CanonicalProjectPath() = %q, want %q", canon, want)
	}
	if !filepath.IsAbs(canon) {
		t.Errorf("CanonicalProjectPath() = %q, want absolute", canon)
	}
}

func TestCanonicalProjectPath_ResolvesSymlinks(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	real := filepath.Join(dir, "real")
	if err := os.Mkdir(real, 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	fromLink, err := CanonicalProjectPath(link)
	if err != nil {
		t.Fatal(err)
	}
	fromReal, err := CanonicalProjectPath(real)
	if err != nil {
		t.Fatal(err)
	}
	if fromLink != fromReal {
		t.Errorf("symlinked project keyed differently: %q vs %q", fromLink, fromReal)
	}
}

func TestDefaultStoreRoot_StablePerProject(t *testing.T) {
	projectA := testutil.CreateProjectDir(t)
	projectB := testutil.CreateProjectDir(t)

	rootA1, err := DefaultStoreRoot(projectA)
	if err != nil {
		t.Fatalf("DefaultStoreRoot() error = %v", err)
	}
	rootA2, err := DefaultStoreRoot(projectA)
	if err != nil {
		t.Fatal(err)
	}
	rootB, err := DefaultStoreRoot(projectB)
	if err != nil {
		t.Fatal(err)
	}

	if rootA1 != rootA2 {
		t.Errorf("DefaultStoreRoot() not stable: %q vs %q", rootA1, rootA2)
	}
	if rootA1 == rootB {
		t.Errorf("distinct projects share store root %q", rootA1)
	}
	if !strings.Contains(rootA1, "codex") {
		t.Errorf("DefaultStoreRoot() = %q, want codex-scoped path", rootA1)
	}
}
