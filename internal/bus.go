package internal

import (
	"fmt"
	"io"
	"sync"
)

// subscriberBuffer sizes the per-subscriber channel. Delivery blocks when a
// subscriber falls this far behind rather than dropping or reordering.
const subscriberBuffer = 256

// Bus delivers envelopes between the local session and the worker. Outbound
// envelopes sent while no worker connection exists are held in a FIFO
// backlog and flushed, in original order, ahead of the first send after a
// connection appears. Inbound envelopes are broadcast to every subscriber in
// the order they were read off the wire.
type Bus struct {
	mu          sync.Mutex
	conn        io.Writer
	backlog     []Envelope
	subscribers []chan Envelope
}

// NewBus returns a bus with no worker connection.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new inbound listener. Every subscriber sees every
// published envelope, in publish order.
func (b *Bus) Subscribe() <-chan Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Envelope, subscriberBuffer)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish broadcasts an inbound envelope to all subscribers.
func (b *Bus) Publish(env Envelope) {
	b.mu.Lock()
	subscribers := make([]chan Envelope, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.Unlock()

	for _, ch := range subscribers {
		ch <- env
	}
}

// Send delivers an envelope to the worker. With no live connection the
// envelope joins the backlog; otherwise the whole backlog is flushed first
// and the envelope written after it, all under one lock so no other send can
// interleave. Local-only envelopes never reach the worker; they are
// broadcast to subscribers instead.
func (b *Bus) Send(env Envelope) error {
	if env.LocalOnly() {
		b.Publish(env)
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		b.backlog = append(b.backlog, env)
		return nil
	}
	if err := b.flushLocked(); err != nil {
		return err
	}
	return b.writeLocked(env)
}

// SendOnChannel builds a client-sourced envelope with a fresh id and sends it.
func (b *Bus) SendOnChannel(data any, channel string, extra map[string]any) error {
	return b.Send(NewEnvelope(data, channel, extra))
}

// Attach installs the write side of a new worker connection and flushes any
// backlog queued while disconnected.
func (b *Bus) Attach(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = w
	return b.flushLocked()
}

// Detach drops the worker connection. Sends queue in the backlog again.
func (b *Bus) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = nil
}

// ClearBacklog discards every queued envelope. The supervisor calls this
// when it replaces the worker process: the queued messages were addressed to
// the old session and must not replay into the new one.
func (b *Bus) ClearBacklog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backlog = nil
}

// BacklogLen reports how many envelopes wait for a connection.
func (b *Bus) BacklogLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.backlog)
}

func (b *Bus) flushLocked() error {
	if b.conn == nil {
		return nil
	}
	for len(b.backlog) > 0 {
		env := b.backlog[0]
		if err := b.writeLocked(env); err != nil {
			return fmt.Errorf("failed to flush backlog: %w", err)
		}
		b.backlog = b.backlog[1:]
	}
	return nil
}

func (b *Bus) writeLocked(env Envelope) error {
	line, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	if _, err := b.conn.Write(line); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	return nil
}
