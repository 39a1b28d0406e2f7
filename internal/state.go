package internal

import (
	"encoding/json"
	"fmt"
)

// State is the whole client-side session state: the transcript plus every
// UI-relevant flag. It is owned by the reducer and serialized wholesale for
// persistence across view reloads.
type State struct {
	Transcript        Transcript     `json:"transcript"`
	SessionActive     bool           `json:"session_active"`
	Interruptable     bool           `json:"interruptable"`
	Crashed           bool           `json:"crashed"`
	PendingInputID    string         `json:"pending_input_id,omitempty"`
	PendingInputPlain bool           `json:"pending_input_plain,omitempty"`
	Draft             string         `json:"draft,omitempty"`
	Edits             []FileEdit     `json:"edits,omitempty"`
	Context           ContextSummary `json:"context"`
	Folders           []string       `json:"folders,omitempty"`
	WorkspaceRoot     string         `json:"workspace_root,omitempty"`
}

// NewState returns the empty session state.
func NewState() State {
	return State{}
}

// Reduce folds one event into the state. It is the only place session state
// changes in response to the worker; the caller invokes it from a single
// event loop, so no locking happens here.
func Reduce(state State, event Event) State {
	switch ev := event.(type) {
	case ContentEvent:
		source := MessageSourceWorker
		if ev.Source == SourceClient {
			source = MessageSourceUser
		}
		transcript, switched := AppendFragment(state.Transcript, ev.Fragment, source)
		state.Transcript = transcript
		if switched {
			// A source switch ends the edit-proposal window.
			state.Edits = nil
		}
	case ClientExitEvent:
		// Quitting the whole editor is not appropriate in an embedded host.
	case SessionStoppedEvent:
		state.SessionActive = false
	case InputRequestEvent:
		state.PendingInputID = ev.RequestID
		state.PendingInputPlain = ev.Plain
	case FileEditsEvent:
		// Replace, not merge: prior unresolved edits are discarded.
		state.Edits = ev.Edits
	case EditsCompleteEvent:
		// Informational only.
	case DefaultPromptEvent:
		state.Draft += ev.Text
	case InterruptableEvent:
		state.Interruptable = ev.Interruptable
	case ContextUpdateEvent:
		state.Context = ev.Summary
		state.Folders = FolderSet(ev.Summary.Paths())
	case NewSessionEvent:
		state.Transcript = AppendBoundary(state.Transcript)
		state.Edits = nil
		state.SessionActive = true
		state.Interruptable = false
		state.Crashed = false
		if ev.WorkspaceRoot != "" {
			state.WorkspaceRoot = ev.WorkspaceRoot
		}
	case ClearEvent:
		state.Transcript = nil
		state.Edits = nil
	case WorkerExitEvent:
		state.SessionActive = false
		state.Interruptable = false
		state.Crashed = true
	case UnknownEvent:
		LogWarn("Unknown channel: %s", ev.Channel)
	}
	return state
}

// SubmitInput appends the user's text to the transcript via the aggregation
// rule and builds the reply envelope for the pending input request. The
// envelope is nil when no input request is pending.
func SubmitInput(state State, text string) (State, *Envelope) {
	transcript, switched := AppendFragment(state.Transcript, MessageContent{Text: text}, MessageSourceUser)
	state.Transcript = transcript
	if switched {
		state.Edits = nil
	}
	state.Draft = ""

	if state.PendingInputID == "" {
		return state, nil
	}
	env := NewEnvelope(text, fmt.Sprintf("input_request:%s", state.PendingInputID), nil)
	state.PendingInputID = ""
	state.PendingInputPlain = false
	return state, &env
}

// InterruptEnvelope builds the advisory interrupt sent when the user cancels
// in-flight work. The worker decides what to do with it; the client never
// force-terminates the process on interrupt.
func InterruptEnvelope() Envelope {
	return NewEnvelope(nil, "interrupt", nil)
}

// ResolveEdit removes the edit at index i from the active set and, for
// accept and preview, builds the envelope forwarding the decision to the
// worker. Decline is local-only and produces no envelope.
func ResolveEdit(state State, i int, decision EditDecision) (State, *Envelope) {
	if i < 0 || i >= len(state.Edits) {
		return state, nil
	}
	edit := state.Edits[i]
	state.Edits = removeEdit(state.Edits, i)

	channel := decision.OutboundChannel()
	if channel == "" {
		return state, nil
	}
	env := NewEnvelope(edit, channel, map[string]any{"filepath": edit.Filepath})
	return state, &env
}

// MarshalSnapshot serializes the state wholesale for opaque persistence.
func MarshalSnapshot(state State) ([]byte, error) {
	buf, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return buf, nil
}

// UnmarshalSnapshot restores a state persisted by MarshalSnapshot verbatim.
func UnmarshalSnapshot(buf []byte) (State, error) {
	var state State
	if err := json.Unmarshal(buf, &state); err != nil {
		return State{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return state, nil
}
