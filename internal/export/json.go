package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kudige/codex/internal"
)

// JSONExporter exports a session and its transcript as one JSON document
type JSONExporter struct{}

type jsonDocument struct {
	ID          string                     `json:"id"`
	ProjectPath string                     `json:"project_path"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	EntryCount  int                        `json:"entry_count"`
	Entries     []internal.TranscriptEntry `json:"entries"`
}

// Export writes the session transcript as indented JSON
func (e *JSONExporter) Export(session *internal.Session, entries []internal.TranscriptEntry, w io.Writer) error {
	doc := jsonDocument{
		ID:          session.ID,
		ProjectPath: session.ProjectPath,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		EntryCount:  len(entries),
		Entries:     entries,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
