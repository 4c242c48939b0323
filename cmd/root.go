package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/kudige/codex/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	storePath   string
	projectPath string
	configPath  string
	newSession  bool
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// Distinct exit codes so scripts can tell contention and missing sessions
// apart from ordinary failures.
const (
	exitOK        = 0
	exitError     = 1
	exitNoSession = 2
	exitBusy      = 3
)

// rootCmd represents the base command. Run without a subcommand it starts an
// interactive session.
var rootCmd = &cobra.Command{
	Use:   "codex [prompt]",
	Short: "Durable, resumable terminal sessions",
	Long: `codex runs conversational work units against a project directory and
persists every run durably, so sessions survive crashes and resume across
process restarts.

Two execution modes share the same session state:
  codex                 # interactive session (resumes the last one)
  codex exec "prompt"   # non-interactive one-shot run

Sessions are stored per project under a session-store directory containing
one record set per session: a metadata record, an append-only transcript,
and (while a run is live) a lock file.

Quick Start:
  codex                        # start or resume an interactive session
  codex exec "do the thing"    # one unit of work, then exit
  codex sessions               # list sessions for this project
  codex show <session-id>      # print a session transcript`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	RunE: runInteractive,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exit codes: 0 success, 2 no resumable session, 3 lock
// contention, 1 anything else.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		switch {
		case errors.Is(err, internal.ErrBusy):
			os.Exit(exitBusy)
		case errors.Is(err, internal.ErrNotFound):
			os.Exit(exitNoSession)
		default:
			os.Exit(exitError)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storePath, "session-store", "", "Session store root directory (default: derived from the project path)")
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "C", ".", "Project directory the session is scoped to")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: config.yaml in the session store)")
	rootCmd.Flags().BoolVar(&newSession, "new-session", false, "Start a fresh session instead of resuming")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// resolveStoreRoot applies --session-store or derives the per-project
// default location.
func resolveStoreRoot() (string, error) {
	if storePath != "" {
		return storePath, nil
	}
	root, err := internal.DefaultStoreRoot(projectPath)
	if err != nil {
		return "", fmt.Errorf("failed to derive session store location: %w", err)
	}
	return root, nil
}

// loadSettings honors --config, falling back to the store's own config file.
func loadSettings(root string) *internal.Settings {
	if configPath != "" {
		return internal.LoadSettingsFile(configPath)
	}
	return internal.LoadSettings(root)
}
