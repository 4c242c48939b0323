package cmd

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/kudige/codex/internal"
	"github.com/kudige/codex/testutil"
)

func TestExecCommand_RunsOneTurn(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	out, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "hello world")
	if err != nil {
		t.Fatalf("exec error = %v", err)
	}
	if !strings.Contains(out, "[turn 1] hello world") {
		t.Errorf("exec output = %q, want first turn reply", out)
	}
}

func TestExecCommand_ResumesAcrossInvocations(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "first"); err != nil {
		t.Fatalf("first exec error = %v", err)
	}
	out, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "second")
	if err != nil {
		t.Fatalf("second exec error = %v", err)
	}
	if !strings.Contains(out, "[turn 2] second") {
		t.Errorf("second exec output = %q, want turn 2 (session resumed)", out)
	}

	// Both invocations ran against a single session.
	s, err := internal.OpenStore(store)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	sessions, err := s.ListForProject(project)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Errorf("store holds %d sessions, want 1", len(sessions))
	}
}

func TestExecCommand_NewSessionStartsFresh(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "first"); err != nil {
		t.Fatalf("first exec error = %v", err)
	}
	out, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "--new-session", "again")
	if err != nil {
		t.Fatalf("exec --new-session error = %v", err)
	}
	if !strings.Contains(out, "[turn 1] again") {
		t.Errorf("exec --new-session output = %q, want fresh turn 1", out)
	}
}

func TestExecCommand_RequireSessionOnEmptyStore(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	_, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "--require-session", "prompt")
	if !errors.Is(err, internal.ErrNotFound) {
		t.Errorf("exec --require-session error = %v, want ErrNotFound", err)
	}
}

func TestExecCommand_ResumeUnknownID(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	_, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "--resume", "no-such-id", "prompt")
	if !errors.Is(err, internal.ErrNotFound) {
		t.Errorf("exec --resume error = %v, want ErrNotFound", err)
	}
}

func TestExecCommand_ConflictingFlags(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	_, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "--require-session", "--new-session", "prompt")
	if err == nil {
		t.Error("exec with --require-session --new-session succeeded, want error")
	}
}

func TestExecCommand_TranscriptLogOverride(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)
	logPath := testutil.CreateTempDir(t) + "/run.jsonl"

	if _, err := runCommand(t, nil, "exec", "--session-store", store, "-C", project, "--transcript-log", logPath, "hello"); err != nil {
		t.Fatalf("exec --transcript-log error = %v", err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("transcript log not written: %v", err)
	}
	if got := internal.CountTranscriptEntries(logPath); got != 2 {
		t.Errorf("transcript log has %d entries, want input + output", got)
	}
}

func TestExecCommand_BusyWhileInteractiveHoldsLock(t *testing.T) {
	store := testutil.CreateTempDir(t)
	project := testutil.CreateProjectDir(t)

	// Hold the session open the way a live interactive run would.
	active, err := internal.Open(internal.OpenOptions{StoreRoot: store, ProjectPath: project})
	if err != nil {
		t.Fatal(err)
	}
	defer active.Close()

	_, err = runCommand(t, nil, "exec", "--session-store", store, "-C", project, "prompt")
	if !errors.Is(err, internal.ErrBusy) {
		t.Errorf("exec against held session error = %v, want ErrBusy", err)
	}
}
