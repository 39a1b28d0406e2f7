package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/agent-console/internal"
	"gopkg.in/yaml.v3"
)

func sampleDocument() internal.SessionDocument {
	return internal.SessionDocument{
		ID:        "s1",
		Workspace: "/w",
		Messages: []internal.ExportMessage{
			{Source: "user", Text: "add **bold** handling"},
			{Boundary: true},
			{Source: "worker", Text: "done, see:\n```go\nfunc main() {}\n```"},
		},
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format    string
		extension string
		wantErr   bool
	}{
		{format: "jsonl", extension: "jsonl"},
		{format: "md", extension: "md"},
		{format: "markdown", extension: "md"},
		{format: "yaml", extension: "yaml"},
		{format: "json", extension: "json"},
		{format: "csv", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("format_"+tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for format %q", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if exporter.Extension() != tt.extension {
				t.Errorf("Expected extension %q, got %q", tt.extension, exporter.Extension())
			}
		})
	}
}

func TestJSONLExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONLExporter{}).Export(sampleDocument(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected one line per message, got %d lines", len(lines))
	}

	var first internal.ExportMessage
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("First line is not valid JSON: %v", err)
	}
	if first.Source != "user" {
		t.Errorf("Expected user message first, got %+v", first)
	}

	var second internal.ExportMessage
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("Second line is not valid JSON: %v", err)
	}
	if !second.Boundary {
		t.Error("Expected boundary record on second line")
	}
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(sampleDocument(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc internal.SessionDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if doc.ID != "s1" || len(doc.Messages) != 3 {
		t.Errorf("Document mismatch: %+v", doc)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("Expected pretty-printed output")
	}
}

func TestYAMLExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(sampleDocument(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc internal.SessionDocument
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Output is not valid YAML: %v", err)
	}
	if doc.ID != "s1" || doc.Workspace != "/w" || len(doc.Messages) != 3 {
		t.Errorf("Document mismatch: %+v", doc)
	}
}

func TestMarkdownExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(sampleDocument(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "# Session s1") {
		t.Error("Expected session header")
	}
	if !strings.Contains(out, "**Workspace:** /w") {
		t.Error("Expected workspace line")
	}
	if !strings.Contains(out, "*New session*") {
		t.Error("Expected boundary divider")
	}
	if !strings.Contains(out, `\*\*bold\*\*`) {
		t.Error("Expected bold markers escaped outside code blocks")
	}
	if !strings.Contains(out, "func main() {}") {
		t.Error("Expected code block content preserved verbatim")
	}
}

func TestEscapeMarkdown_CodeBlocksPreserved(t *testing.T) {
	text := "before **x**\n```\ninside **x**\n```\nafter __y__"
	got := escapeMarkdown(text)

	if !strings.Contains(got, `before \*\*x\*\*`) {
		t.Error("Expected escaping before the code block")
	}
	if !strings.Contains(got, "inside **x**") {
		t.Error("Expected no escaping inside the code block")
	}
	if !strings.Contains(got, `after \_\_y\_\_`) {
		t.Error("Expected escaping after the code block")
	}
}
