package hub

import "sync"

const defaultBufferSize = 16

type sendResult int

const (
	sendOK sendResult = iota
	sendDropped
	sendClosed
)

// Channel is one outbound push channel owned by the hub. The transport pump
// (SSE or WebSocket) drains Recv and calls Closed when its connection dies,
// so the next broadcast evicts the channel.
type Channel struct {
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	doneOnce  sync.Once
}

// NewChannel creates a channel with the given outbound buffer size.
// Sizes below 1 fall back to the default.
func NewChannel(buffer int) *Channel {
	if buffer < 1 {
		buffer = defaultBufferSize
	}
	return &Channel{
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Recv returns the stream of serialized events for this channel. It is
// closed when the channel is unregistered.
func (c *Channel) Recv() <-chan []byte {
	return c.send
}

// Done is signaled when the transport behind this channel has gone away.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Closed marks the channel's transport as gone. Idempotent. The hub evicts
// the channel on the next broadcast that touches it, or the pump unregisters
// it directly.
func (c *Channel) Closed() {
	c.doneOnce.Do(func() { close(c.done) })
}

// trySend writes data without blocking. A slow consumer loses this message
// rather than delaying other channels or the mutating request.
func (c *Channel) trySend(data []byte) sendResult {
	select {
	case <-c.done:
		return sendClosed
	default:
	}

	select {
	case c.send <- data:
		return sendOK
	default:
		return sendDropped
	}
}

// close releases the outbound buffer. Called by the hub on unregister.
func (c *Channel) close() {
	c.closeOnce.Do(func() { close(c.send) })
}
