package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kudige/codex/internal"
)

// JSONLExporter exports transcripts in JSONL format (one entry per line)
type JSONLExporter struct{}

// Export writes one JSON object per transcript entry
func (e *JSONLExporter) Export(session *internal.Session, entries []internal.TranscriptEntry, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("failed to encode entry %d: %w", entry.Sequence, err)
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
