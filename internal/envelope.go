package internal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Source identifies who produced an envelope.
type Source string

const (
	SourceClient Source = "client"
	SourceWorker Source = "worker"
)

// Envelope is one unit of the wire protocol exchanged with the worker.
// Envelopes are immutable once sent; the id is only required to be unique
// within one correlation exchange (a request and its reply).
type Envelope struct {
	ID      string         `json:"id"`
	Channel string         `json:"channel"`
	Source  Source         `json:"source"`
	Data    any            `json:"data"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewEnvelope builds a client-sourced envelope with a fresh id.
func NewEnvelope(data any, channel string, extra map[string]any) Envelope {
	return Envelope{
		ID:      uuid.NewString(),
		Channel: channel,
		Source:  SourceClient,
		Data:    data,
		Extra:   extra,
	}
}

// Namespace returns the first colon-delimited segment of the channel.
// The remaining segments are sender-defined correlation data.
func (e Envelope) Namespace() string {
	if i := strings.IndexByte(e.Channel, ':'); i >= 0 {
		return e.Channel[:i]
	}
	return e.Channel
}

// ChannelParts splits the channel on ":".
func (e Envelope) ChannelParts() []string {
	return strings.Split(e.Channel, ":")
}

// LocalOnly reports whether the envelope belongs to a local-UI-only channel
// that must never be written to the worker.
func (e Envelope) LocalOnly() bool {
	if e.Namespace() == "vscode" {
		return true
	}
	parts := e.ChannelParts()
	return parts[len(parts)-1] == "webviewLoaded"
}

// EncodeEnvelope marshals an envelope as one NDJSON line, newline included.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	buf, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return append(buf, '\n'), nil
}

// DecodeEnvelope parses one trimmed NDJSON line into an Envelope.
func DecodeEnvelope(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, nil
}
