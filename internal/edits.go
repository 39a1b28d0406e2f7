package internal

// FileEdit is a proposed change to a file surfaced by the worker. The core
// tracks edits by identity only; rendering the change content is the UI's
// concern, so the payload rides along untyped.
type FileEdit struct {
	ID       string `json:"id,omitempty"`
	Filepath string `json:"filepath"`
	Display  string `json:"filepath_display,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// EditDecision is a terminal resolution for a proposed edit.
type EditDecision string

const (
	EditAccepted  EditDecision = "accept"
	EditDeclined  EditDecision = "decline"
	EditPreviewed EditDecision = "preview"
)

// OutboundChannel returns the worker channel a decision is forwarded on, or
// "" when the decision is local-only (decline).
func (d EditDecision) OutboundChannel() string {
	switch d {
	case EditAccepted:
		return "accept"
	case EditPreviewed:
		return "preview"
	default:
		return ""
	}
}

// removeEdit drops the edit at index i, preserving order of the rest.
func removeEdit(edits []FileEdit, i int) []FileEdit {
	if i < 0 || i >= len(edits) {
		return edits
	}
	out := make([]FileEdit, 0, len(edits)-1)
	out = append(out, edits[:i]...)
	out = append(out, edits[i+1:]...)
	return out
}
