package cmd

import (
	"context"
	"fmt"

	"github.com/kudige/codex/internal"
	"github.com/spf13/cobra"
)

var (
	execTranscriptLog string
	execResumeID      string
	execLast          bool
	execNewSession    bool
	execRequire       bool
)

// execCmd performs exactly one unit of work: one input, one output, one
// snapshot save. Nothing is held across invocations except what the store
// persists.
var execCmd = &cobra.Command{
	Use:   "exec <prompt>",
	Short: "Run one unit of work non-interactively",
	Long: `Run a single prompt against the project's session and exit.

By default exec continues the session the previous run used (the store keeps
an auto-resume pointer), falling back to the most recent session for the
project, and creates a fresh session when none exists.

Exit codes: 0 on success, 2 when --require-session (or --resume) found no
valid session, 3 when another process holds the session lock.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		root, err := resolveStoreRoot()
		if err != nil {
			return err
		}

		policy := internal.ResumeAuto
		switch {
		case execNewSession:
			policy = internal.ResumeNever
		case execResumeID != "":
			policy = internal.ResumeByID
		case execRequire || execLast:
			// --last without a recorded pointer still resolves the newest
			// session for the project; with nothing to resume it fails
			// rather than silently starting fresh.
			policy = internal.ResumeRequired
		}
		if execRequire && execNewSession {
			return fmt.Errorf("--require-session and --new-session are mutually exclusive")
		}

		active, err := internal.Open(internal.OpenOptions{
			StoreRoot:      root,
			ProjectPath:    projectPath,
			Policy:         policy,
			SessionID:      execResumeID,
			TranscriptPath: execTranscriptLog,
			Settings:       loadSettings(root),
		})
		if err != nil {
			return err
		}
		defer func() {
			if cerr := active.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		if active.Resumed() {
			internal.LogInfo("Continuing session %s (%d entries)", active.Session.ID, active.TranscriptEntryCount())
		} else {
			internal.LogInfo("Created session %s", active.Session.ID)
		}

		reply, err := active.RunTurn(context.Background(), localResponder{}, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().StringVar(&execTranscriptLog, "transcript-log", "", "Write the transcript to this path instead of the session's default destination")
	execCmd.Flags().StringVar(&execResumeID, "resume", "", "Resume the session with this ID")
	execCmd.Flags().BoolVar(&execLast, "last", false, "Resume the most recent session; fail if none exists")
	execCmd.Flags().BoolVar(&execNewSession, "new-session", false, "Create a fresh session instead of resuming")
	execCmd.Flags().BoolVar(&execRequire, "require-session", false, "Fail (exit 2) instead of creating a session when none is resumable")
}
