// Package bus carries inbound dialog events from the chat channel to the
// dispatcher. Outbound replies go directly through the channel adapter.
package bus

import (
	"context"
)

// EventKind discriminates inbound event payloads.
type EventKind string

const (
	// EventText is a plain text message (including menu button presses).
	EventText EventKind = "text"
	// EventAudio is a voice message, audio file or audio document.
	EventAudio EventKind = "audio"
	// EventCallback is an inline keyboard button press.
	EventCallback EventKind = "callback"
	// EventCommand is a slash command such as /start or /help.
	EventCommand EventKind = "command"
)

// InboundEvent is one unit of work for the dialog engine.
type InboundEvent struct {
	Kind   EventKind
	UserID int64
	ChatID int64

	// Text payload (EventText) or command name without slash (EventCommand).
	Text string

	// Callback payload (EventCallback).
	CallbackID string
	MessageID  int
	Data       string

	// Audio payload (EventAudio): raw bytes already fetched from the
	// transport, plus the original file extension.
	Audio    []byte
	AudioExt string
}

// Bus is a buffered queue of inbound events.
type Bus struct {
	inbound chan InboundEvent
}

// New creates a bus with the given buffer capacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 100
	}
	return &Bus{inbound: make(chan InboundEvent, capacity)}
}

// PublishInbound queues an inbound event. Blocks when the buffer is full,
// which back-pressures the transport poller.
func (b *Bus) PublishInbound(ev InboundEvent) {
	b.inbound <- ev
}

// ConsumeInbound blocks until an event is available or ctx is cancelled.
func (b *Bus) ConsumeInbound(ctx context.Context) (InboundEvent, bool) {
	select {
	case ev := <-b.inbound:
		return ev, true
	case <-ctx.Done():
		return InboundEvent{}, false
	}
}
