package internal

// MessageLimit bounds the transcript to the most recent entries; the oldest
// are evicted first, session boundaries included.
const MessageLimit = 100

// MessageContent is a fragment of streamed output with optional rendering
// attributes.
type MessageContent struct {
	Text            string `json:"text"`
	Style           string `json:"style,omitempty"`
	Color           string `json:"color,omitempty"`
	Filepath        string `json:"filepath,omitempty"`
	FilepathDisplay string `json:"filepath_display,omitempty"`
	Delimiter       bool   `json:"delimiter,omitempty"`
}

// SameAttributes reports whether two fragments carry identical non-text
// attributes, the condition for coalescing their text into one span.
func (c MessageContent) SameAttributes(other MessageContent) bool {
	return c.Style == other.Style &&
		c.Color == other.Color &&
		c.Filepath == other.Filepath &&
		c.FilepathDisplay == other.FilepathDisplay &&
		c.Delimiter == other.Delimiter
}

// MessageSource identifies who a transcript message belongs to.
type MessageSource string

const (
	MessageSourceUser   MessageSource = "user"
	MessageSourceWorker MessageSource = "worker"
)

// Message is one transcript unit: an ordered sequence of content spans from
// a single source.
type Message struct {
	Source  MessageSource    `json:"source"`
	Content []MessageContent `json:"content"`
}

// Transcript is the bounded, ordered message history. A nil entry is a
// session boundary, drawn when a new worker session starts after prior
// output existed.
type Transcript []*Message

// AppendFragment folds one content fragment into the transcript following
// the aggregation rule: a source switch starts a new message (trimming the
// transcript so the post-append length never exceeds MessageLimit); within
// the same source, fragments with identical non-text attributes concatenate
// into the last span, and differing attributes open a new span. The returned
// flag reports whether a new message was started, which ends the active
// edit-proposal window.
func AppendFragment(t Transcript, fragment MessageContent, source MessageSource) (Transcript, bool) {
	last := t.lastMessage()
	if last == nil || last.Source != source {
		t = t.trim(MessageLimit - 1)
		msg := &Message{Source: source, Content: []MessageContent{fragment}}
		return append(t, msg), true
	}

	lastSpan := &last.Content[len(last.Content)-1]
	if lastSpan.SameAttributes(fragment) {
		lastSpan.Text += fragment.Text
	} else {
		last.Content = append(last.Content, fragment)
	}
	return t, false
}

// AppendBoundary inserts a session boundary unless the transcript is empty
// or already ends in one.
func AppendBoundary(t Transcript) Transcript {
	if len(t) == 0 || t[len(t)-1] == nil {
		return t
	}
	t = t.trim(MessageLimit - 1)
	return append(t, nil)
}

// lastMessage returns the final entry, or nil if the transcript is empty or
// ends in a session boundary.
func (t Transcript) lastMessage() *Message {
	if len(t) == 0 {
		return nil
	}
	return t[len(t)-1]
}

// trim drops the oldest entries until at most n remain.
func (t Transcript) trim(n int) Transcript {
	if len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}
