package internal

import "strings"

// SessionDocument is the flattened, export-friendly view of a stored
// session. Boundary entries become explicit records so every format can
// render session restarts.
type SessionDocument struct {
	ID        string          `json:"id" yaml:"id"`
	Workspace string          `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Messages  []ExportMessage `json:"messages" yaml:"messages"`
}

// ExportMessage is one transcript entry flattened for export.
type ExportMessage struct {
	Boundary bool   `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
}

// BuildDocument flattens a session snapshot into its export view. Span
// texts concatenate in order; rendering attributes are dropped.
func BuildDocument(id string, state State) SessionDocument {
	doc := SessionDocument{
		ID:        id,
		Workspace: state.WorkspaceRoot,
		Messages:  make([]ExportMessage, 0, len(state.Transcript)),
	}
	for _, msg := range state.Transcript {
		if msg == nil {
			doc.Messages = append(doc.Messages, ExportMessage{Boundary: true})
			continue
		}
		var text strings.Builder
		for _, span := range msg.Content {
			text.WriteString(span.Text)
		}
		doc.Messages = append(doc.Messages, ExportMessage{
			Source: string(msg.Source),
			Text:   text.String(),
		})
	}
	return doc
}
