package internal

import "encoding/json"

// Event is the typed form of an inbound envelope. Envelopes are decoded into
// exactly one variant at the bus boundary; channels nobody recognizes become
// UnknownEvent rather than silently falling through.
type Event interface {
	eventKind() string
}

// ContentEvent carries one streamed output fragment on the default channel.
type ContentEvent struct {
	Source   Source
	Fragment MessageContent
}

// ClientExitEvent signals that the worker wants the client to shut down.
// Ignored in an embedded host.
type ClientExitEvent struct{}

// SessionStoppedEvent marks the worker session as no longer active.
type SessionStoppedEvent struct{}

// InputRequestEvent asks the client for user input. Replies are sent on
// input_request:<RequestID>.
type InputRequestEvent struct {
	RequestID string
	Plain     bool
}

// FileEditsEvent replaces the active set of proposed file edits.
type FileEditsEvent struct {
	Edits []FileEdit
}

// EditsCompleteEvent is informational; the worker finished emitting edits.
type EditsCompleteEvent struct{}

// DefaultPromptEvent carries a fragment of the pre-filled draft input.
type DefaultPromptEvent struct {
	Text string
}

// InterruptableEvent toggles whether the worker accepts an interrupt.
type InterruptableEvent struct {
	Interruptable bool
}

// ContextUpdateEvent carries a refreshed context summary.
type ContextUpdateEvent struct {
	Summary ContextSummary
}

// NewSessionEvent marks the start of a new worker session.
type NewSessionEvent struct {
	WorkspaceRoot string
}

// ClearEvent clears the transcript and the active edit set.
type ClearEvent struct{}

// WorkerExitEvent is published by the supervisor when the worker process
// ends, whatever the exit code.
type WorkerExitEvent struct{}

// UnknownEvent wraps an envelope whose channel namespace is not recognized.
type UnknownEvent struct {
	Channel string
}

func (ContentEvent) eventKind() string        { return "content" }
func (ClientExitEvent) eventKind() string     { return "client_exit" }
func (SessionStoppedEvent) eventKind() string { return "session_stopped" }
func (InputRequestEvent) eventKind() string   { return "input_request" }
func (FileEditsEvent) eventKind() string      { return "model_file_edits" }
func (EditsCompleteEvent) eventKind() string  { return "edits_complete" }
func (DefaultPromptEvent) eventKind() string  { return "default_prompt" }
func (InterruptableEvent) eventKind() string  { return "interruptable" }
func (ContextUpdateEvent) eventKind() string  { return "context_update" }
func (NewSessionEvent) eventKind() string     { return "new_session" }
func (ClearEvent) eventKind() string          { return "clear" }
func (WorkerExitEvent) eventKind() string     { return "worker_exit" }
func (UnknownEvent) eventKind() string        { return "unknown" }

// DecodeEvent maps an envelope to its typed event. The dispatch key is the
// first colon-delimited segment of the channel.
func DecodeEvent(env Envelope) Event {
	parts := env.ChannelParts()
	switch parts[0] {
	case "default":
		return ContentEvent{Source: env.Source, Fragment: fragmentFromEnvelope(env)}
	case "client_exit":
		return ClientExitEvent{}
	case "session_stopped":
		return SessionStoppedEvent{}
	case "input_request":
		plain, _ := env.Extra["plain"].(bool)
		return InputRequestEvent{RequestID: env.ID, Plain: plain}
	case "model_file_edits":
		return FileEditsEvent{Edits: decodeFileEdits(env.Data)}
	case "edits_complete":
		return EditsCompleteEvent{}
	case "default_prompt":
		return DefaultPromptEvent{Text: dataString(env.Data)}
	case "interruptable":
		flag, _ := env.Data.(bool)
		return InterruptableEvent{Interruptable: flag}
	case "context_update":
		return ContextUpdateEvent{Summary: decodeContextSummary(env.Data)}
	case ChannelWorkerExit:
		return WorkerExitEvent{}
	case "vscode":
		if len(parts) > 1 {
			switch parts[1] {
			case "newSession":
				return NewSessionEvent{WorkspaceRoot: extraString(env.Extra, "workspaceRoot")}
			case "clearChatbox":
				return ClearEvent{}
			}
		}
		return UnknownEvent{Channel: env.Channel}
	default:
		return UnknownEvent{Channel: env.Channel}
	}
}

// fragmentFromEnvelope builds a MessageContent from the envelope data plus
// the styling attributes in extra.
func fragmentFromEnvelope(env Envelope) MessageContent {
	return MessageContent{
		Text:            dataString(env.Data),
		Style:           extraString(env.Extra, "style"),
		Color:           extraString(env.Extra, "color"),
		Filepath:        extraString(env.Extra, "filepath"),
		FilepathDisplay: extraString(env.Extra, "filepath_display"),
		Delimiter:       extraBool(env.Extra, "delimiter"),
	}
}

func decodeFileEdits(data any) []FileEdit {
	var edits []FileEdit
	if err := remarshal(data, &edits); err != nil {
		LogWarn("Failed to decode file edits: %v", err)
		return nil
	}
	return edits
}

func decodeContextSummary(data any) ContextSummary {
	var summary ContextSummary
	if err := remarshal(data, &summary); err != nil {
		LogWarn("Failed to decode context update: %v", err)
	}
	return summary
}

// remarshal round-trips an untyped JSON value into a typed destination.
func remarshal(data any, dst any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, dst)
}

func dataString(data any) string {
	s, _ := data.(string)
	return s
}

func extraString(extra map[string]any, key string) string {
	if extra == nil {
		return ""
	}
	s, _ := extra[key].(string)
	return s
}

func extraBool(extra map[string]any, key string) bool {
	if extra == nil {
		return false
	}
	b, _ := extra[key].(bool)
	return b
}
