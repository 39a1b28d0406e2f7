package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/agent-console/internal"
)

// JSONLExporter exports sessions in JSON Lines format, one message per line
type JSONLExporter struct{}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(doc internal.SessionDocument, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, msg := range doc.Messages {
		if err := enc.Encode(msg); err != nil {
			return err
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
