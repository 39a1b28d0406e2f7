package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/agent-console/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(doc internal.SessionDocument, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# Session %s\n\n", doc.ID)

	if doc.Workspace != "" {
		_, _ = fmt.Fprintf(w, "**Workspace:** %s  \n", doc.Workspace)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(doc.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for _, msg := range doc.Messages {
		if msg.Boundary {
			// Session restart divider
			_, _ = fmt.Fprintf(w, "---\n\n*New session*\n\n---\n\n")
			continue
		}
		content := escapeMarkdown(msg.Text)
		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", msg.Source, content)
	}

	return nil
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
