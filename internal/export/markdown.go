package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kudige/codex/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export writes a human-readable Markdown rendering of the transcript
func (e *MarkdownExporter) Export(session *internal.Session, entries []internal.TranscriptEntry, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Session %s\n\n", session.ID)
	_, _ = fmt.Fprintf(w, "**Project:** %s  \n", session.ProjectPath)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", session.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", session.UpdatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Entries:** %d\n\n", len(entries))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Transcript\n\n")

	for i, entry := range entries {
		_, _ = fmt.Fprintf(w, "**%d. %s** (%s)\n\n%s\n\n",
			entry.Sequence, entry.Kind, entry.Timestamp.Format(time.RFC3339), renderPayload(entry.Payload))
		if i < len(entries)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// renderPayload unwraps a plain JSON string payload; anything else is shown
// as raw JSON.
func renderPayload(payload json.RawMessage) string {
	var text string
	if err := json.Unmarshal(payload, &text); err == nil {
		return text
	}
	return string(payload)
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
