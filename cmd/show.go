package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kudige/codex/internal"
	"github.com/spf13/cobra"
)

var (
	showKindStyles = map[internal.EntryKind]lipgloss.Style{
		internal.EntryInput:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		internal.EntryOutput: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		internal.EntrySystem: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}

	showMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// showCmd prints a session's transcript.
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
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

		sess, err := store.Load(args[0])
		if err != nil {
			return err
		}
		entries, err := internal.ReadTranscriptEntries(sess.TranscriptPath)
		if err != nil && err != internal.ErrNotFound {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Session %s", sess.ID)))
		fmt.Fprintln(out, showMetaStyle.Render(fmt.Sprintf("Project: %s", sess.ProjectPath)))
		fmt.Fprintln(out, showMetaStyle.Render(fmt.Sprintf("Updated: %s, %d entries", sess.UpdatedAt.Local().Format(time.DateTime), len(entries))))
		fmt.Fprintln(out)

		for _, entry := range entries {
			style, ok := showKindStyles[entry.Kind]
			if !ok {
				style = showMetaStyle
			}
			fmt.Fprintf(out, "%s %s\n",
				style.Render(fmt.Sprintf("%4d %-6s", entry.Sequence, entry.Kind)),
				payloadText(entry.Payload),
			)
		}
		return nil
	},
}

// payloadText unwraps plain string payloads for display; anything else stays
// raw JSON.
func payloadText(payload json.RawMessage) string {
	var text string
	if err := json.Unmarshal(payload, &text); err == nil {
		return text
	}
	return string(payload)
}

func init() {
	rootCmd.AddCommand(showCmd)
}
