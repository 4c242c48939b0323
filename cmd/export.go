package cmd

import (
	"fmt"
	"os"

	"github.com/kudige/codex/internal"
	"github.com/kudige/codex/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

// exportCmd writes a session transcript in a machine- or human-readable
// format.
var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Long:  `Export a session transcript as json, jsonl, markdown, or yaml.`,
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

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if exportOutput != "" {
			file, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() { _ = file.Close() }()
			w = file
		}

		if err := exporter.Export(sess, entries, w); err != nil {
			return fmt.Errorf("failed to export session %s: %w", sess.ID, err)
		}
		if exportOutput != "" {
			internal.LogInfo("Exported session %s to %s", sess.ID, exportOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "jsonl", "Export format: json, jsonl, md, yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
}
