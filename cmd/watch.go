package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/kudige/codex/internal"
	"github.com/spf13/cobra"
)

var watchFromStart bool

// watchCmd tails a session's transcript, printing entries as another process
// appends them. Watching is read-only and takes no lock.
var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a live session transcript",
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
		path := sess.TranscriptPath

		out := cmd.OutOrStdout()
		var lastSeq int64
		if !watchFromStart {
			lastSeq = internal.CountTranscriptEntries(path)
			fmt.Fprintln(out, showMetaStyle.Render(fmt.Sprintf("Following session %s from entry %d (Ctrl-C to stop)", sess.ID, lastSeq+1)))
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer func() { _ = watcher.Close() }()

		// Watch the directory rather than the file: atomic renames in the
		// session dir would otherwise drop the watch.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lastSeq = emitNewEntries(out, path, lastSeq)
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					lastSeq = emitNewEntries(out, path, lastSeq)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				internal.LogWarn("Watcher error: %v", err)
			}
		}
	},
}

// emitNewEntries prints every complete entry past lastSeq and returns the
// new high-water mark.
func emitNewEntries(out io.Writer, path string, lastSeq int64) int64 {
	entries, err := internal.ReadTranscriptEntries(path)
	if err != nil {
		if err != internal.ErrNotFound {
			internal.LogWarn("Failed to read transcript: %v", err)
		}
		return lastSeq
	}
	for _, entry := range entries {
		if entry.Sequence <= lastSeq {
			continue
		}
		style, ok := showKindStyles[entry.Kind]
		if !ok {
			style = showMetaStyle
		}
		fmt.Fprintf(out, "%s %s\n",
			style.Render(fmt.Sprintf("%4d %-6s", entry.Sequence, entry.Kind)),
			payloadText(entry.Payload),
		)
		lastSeq = entry.Sequence
	}
	return lastSeq
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchFromStart, "from-start", false, "Print the existing transcript before following")
}
