package export

import (
	"fmt"
	"io"
	"time"

	"github.com/kudige/codex/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports transcripts in YAML format
type YAMLExporter struct{}

type yamlDocument struct {
	ID          string      `yaml:"id"`
	ProjectPath string      `yaml:"project_path"`
	CreatedAt   string      `yaml:"created_at"`
	UpdatedAt   string      `yaml:"updated_at"`
	Entries     []yamlEntry `yaml:"entries"`
}

type yamlEntry struct {
	Sequence  int64  `yaml:"sequence"`
	Timestamp string `yaml:"timestamp"`
	Kind      string `yaml:"kind"`
	Payload   string `yaml:"payload"`
}

// Export writes the session transcript as a YAML document
func (e *YAMLExporter) Export(session *internal.Session, entries []internal.TranscriptEntry, w io.Writer) error {
	doc := yamlDocument{
		ID:          session.ID,
		ProjectPath: session.ProjectPath,
		CreatedAt:   session.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   session.UpdatedAt.Format(time.RFC3339),
		Entries:     make([]yamlEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		doc.Entries = append(doc.Entries, yamlEntry{
			Sequence:  entry.Sequence,
			Timestamp: entry.Timestamp.Format(time.RFC3339),
			Kind:      string(entry.Kind),
			Payload:   renderPayload(entry.Payload),
		})
	}

	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return nil
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
