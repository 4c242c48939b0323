package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kudige/codex/internal"
	"gopkg.in/yaml.v3"
)

func sampleSession() (*internal.Session, []internal.TranscriptEntry) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	session := &internal.Session{
		ID:          "sess-1",
		ProjectPath: "/proj",
		CreatedAt:   now,
		UpdatedAt:   now.Add(time.Minute),
	}
	entries := []internal.TranscriptEntry{
		{Sequence: 1, Timestamp: now, Kind: internal.EntryInput, Payload: json.RawMessage(`"hello"`)},
		{Sequence: 2, Timestamp: now.Add(time.Second), Kind: internal.EntryOutput, Payload: json.RawMessage(`"hi there"`)},
		{Sequence: 3, Timestamp: now.Add(2 * time.Second), Kind: internal.EntrySystem, Payload: json.RawMessage(`{"note":"saved"}`)},
	}
	return session, entries
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format    string
		extension string
		wantErr   bool
	}{
		{format: "jsonl", extension: "jsonl"},
		{format: "json", extension: "json"},
		{format: "md", extension: "md"},
		{format: "markdown", extension: "md"},
		{format: "yaml", extension: "yaml"},
		{format: "csv", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if err == nil && exporter.Extension() != tt.extension {
				t.Errorf("Extension() = %q, want %q", exporter.Extension(), tt.extension)
			}
		})
	}
}

func TestJSONLExporter_OneLinePerEntry(t *testing.T) {
	session, entries := sampleSession()
	var buf bytes.Buffer
	if err := (&JSONLExporter{}).Export(session, entries, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != len(entries) {
		t.Fatalf("got %d lines, want %d", len(lines), len(entries))
	}
	for i, line := range lines {
		var entry internal.TranscriptEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i+1, err)
		}
		if entry.Sequence != int64(i+1) {
			t.Errorf("line %d sequence = %d, want %d", i+1, entry.Sequence, i+1)
		}
	}
}

func TestJSONExporter_SingleDocument(t *testing.T) {
	session, entries := sampleSession()
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(session, entries, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc struct {
		ID         string                     `json:"id"`
		EntryCount int                        `json:"entry_count"`
		Entries    []internal.TranscriptEntry `json:"entries"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.ID != session.ID {
		t.Errorf("id = %q, want %q", doc.ID, session.ID)
	}
	if doc.EntryCount != len(entries) || len(doc.Entries) != len(entries) {
		t.Errorf("entry count = %d/%d, want %d", doc.EntryCount, len(doc.Entries), len(entries))
	}
}

func TestMarkdownExporter(t *testing.T) {
	session, entries := sampleSession()
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(session, entries, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"# Session sess-1", "**Project:** /proj", "hello", "hi there"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
	// String payloads are unwrapped, not shown as JSON literals.
	if strings.Contains(out, `"hello"`) {
		t.Error("string payload rendered with JSON quoting")
	}
}

func TestYAMLExporter(t *testing.T) {
	session, entries := sampleSession()
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(session, entries, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc struct {
		ID      string `yaml:"id"`
		Entries []struct {
			Sequence int64  `yaml:"sequence"`
			Kind     string `yaml:"kind"`
			Payload  string `yaml:"payload"`
		} `yaml:"entries"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if doc.ID != session.ID || len(doc.Entries) != len(entries) {
		t.Errorf("doc = %+v, want %d entries for %s", doc, len(entries), session.ID)
	}
	if doc.Entries[0].Payload != "hello" {
		t.Errorf("payload = %q, want unwrapped string", doc.Entries[0].Payload)
	}
}
