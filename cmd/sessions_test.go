package cmd

import (
	"strings"
	"testing"

	"github.com/kudige/codex/testutil"
)

func TestSessionsCommand_EmptyStore(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	out, err := runCommand(t, nil, "sessions", "--session-store", store, "-C", project)
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	if !strings.Contains(out, "No sessions found") {
		t.Errorf("sessions output = %q, want empty-store notice", out)
	}
}

func TestSessionsCommand_ListsAfterRuns(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "--new-session", "second"); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, nil, "sessions", "--session-store", store, "-C", project)
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	if !strings.Contains(out, "Sessions (2)") {
		t.Errorf("sessions output = %q, want two sessions listed", out)
	}
	for _, col := range []string{"ID", "UPDATED", "ENTRIES", "STATE", "PROJECT"} {
		if !strings.Contains(out, col) {
			t.Errorf("sessions output missing column %q", col)
		}
	}
}

func TestSessionsCommand_ScopedToProject(t *testing.T) {
	store := testutil.CreateTempDir(t)
	projectA := testutil.CreateProjectDir(t)
	projectB := testutil.CreateProjectDir(t)

	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", projectA, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", projectB, "b"); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, nil, "sessions", "--session-store", store, "-C", projectA)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Sessions (1)") {
		t.Errorf("project-scoped listing = %q, want 1 session", out)
	}

	out, err = runCommand(t, nil, "sessions", "--session-store", store, "-C", projectA, "--all")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Sessions (2)") {
		t.Errorf("--all listing = %q, want 2 sessions", out)
	}
}

func TestSessionsCommand_RebuildIndex(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "hello"); err != nil {
		t.Fatal(err)
	}
	out, err := runCommand(t, nil, "sessions", "--session-store", store, "-C", project, "--rebuild-index")
	if err != nil {
		t.Fatalf("sessions --rebuild-index error = %v", err)
	}
	if !strings.Contains(out, "Sessions (1)") {
		t.Errorf("post-rebuild listing = %q, want 1 session", out)
	}
}
