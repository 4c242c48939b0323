package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kudige/codex/internal"
	"github.com/spf13/cobra"
)

var (
	sessionsAll     bool
	sessionsRebuild bool
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// sessionsCmd lists the sessions recorded in the store. The sqlite index
// serves the listing when available; otherwise the store is scanned.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions for the project",
	Long: `List sessions recorded in the session store, newest first.

Only the session currently holding its lock is live; historical sessions are
immutable records that remain resumable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveStoreRoot()
		if err != nil {
			return err
		}
		store, err := internal.OpenStore(root)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		settings := loadSettings(root)

		if sessionsRebuild {
			if err := store.RebuildIndex(); err != nil {
				internal.LogWarn("Failed to rebuild session index: %v", err)
			} else {
				internal.LogInfo("Session index rebuilt")
			}
		}

		entries, err := listEntries(store)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Sessions (%d)", len(entries))))
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUPDATED\tENTRIES\tSTATE\tPROJECT")
		for _, entry := range entries {
			state := internal.LockState(store.SessionDir(entry.ID), settings.LockStaleAfter)
			stateText := state
			if state == "live" {
				stateText = liveStyle.Render(state)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				idStyle.Render(entry.ID),
				dateStyle.Render(entry.UpdatedAt.Local().Format(time.DateTime)),
				countStyle.Render(fmt.Sprintf("%d", entry.EntryCount)),
				stateText,
				entry.ProjectPath,
			)
		}
		return w.Flush()
	},
}

// listEntries prefers the sqlite index and falls back to scanning records
// and counting transcript entries directly.
func listEntries(store *internal.SessionStore) ([]internal.IndexEntry, error) {
	if index := store.Index(); index != nil {
		var (
			entries []internal.IndexEntry
			err     error
		)
		if sessionsAll {
			entries, err = index.ListAll()
		} else {
			canon, cerr := internal.CanonicalProjectPath(projectPath)
			if cerr != nil {
				return nil, cerr
			}
			entries, err = index.ListForProject(canon)
		}
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			internal.LogWarn("Session index query failed, scanning records: %v", err)
		}
	}

	var (
		sessions []*internal.Session
		err      error
	)
	if sessionsAll {
		sessions, err = store.ListAll()
	} else {
		sessions, err = store.ListForProject(projectPath)
	}
	if err != nil {
		return nil, err
	}
	entries := make([]internal.IndexEntry, 0, len(sessions))
	for _, sess := range sessions {
		entries = append(entries, internal.IndexEntry{
			ID:             sess.ID,
			ProjectPath:    sess.ProjectPath,
			CreatedAt:      sess.CreatedAt,
			UpdatedAt:      sess.UpdatedAt,
			EntryCount:     internal.CountTranscriptEntries(sess.TranscriptPath),
			TranscriptPath: sess.TranscriptPath,
		})
	}
	return entries, nil
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().BoolVar(&sessionsAll, "all", false, "List sessions for every project in the store")
	sessionsCmd.Flags().BoolVar(&sessionsRebuild, "rebuild-index", false, "Rebuild the sqlite index from the session records first")
}
