// Package hub implements the in-process notification hub: a registry of open
// push channels per list, with best-effort fan-out of broadcast events.
// Delivery is fire-and-forget; a process restart drops all registrations and
// clients recover by reconnecting and refetching list state.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dmfalke/sharelist/internal/event"
)

// Metrics is the subset of instrumentation the hub reports into. A nil-safe
// no-op implementation is used when metrics are disabled.
type Metrics interface {
	RecordBroadcast(eventType string)
	RecordDelivery()
	RecordDrop()
	RecordEviction()
	ChannelOpened()
	ChannelClosed()
}

// Hub maintains the set of open push channels for each list and delivers
// broadcast events to all of them. All methods are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	lists   map[int64]map[*Channel]struct{}
	logger  *slog.Logger
	metrics Metrics
}

// New creates a Hub. metrics may be nil.
func New(logger *slog.Logger, metrics Metrics) *Hub {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Hub{
		lists:   make(map[int64]map[*Channel]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds ch to the channel set for listID, creating the set if absent.
func (h *Hub) Register(listID int64, ch *Channel) {
	h.mu.Lock()
	set, ok := h.lists[listID]
	if !ok {
		set = make(map[*Channel]struct{})
		h.lists[listID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	h.metrics.ChannelOpened()
}

// Unregister removes ch from the channel set for listID. Removing a channel
// that is not registered is a no-op; this absorbs the race where a client
// disconnects while a broadcast is in flight. When the set becomes empty the
// list entry is dropped to bound memory.
func (h *Hub) Unregister(listID int64, ch *Channel) {
	h.mu.Lock()
	set, ok := h.lists[listID]
	if ok {
		if _, present := set[ch]; present {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.lists, listID)
			}
			h.mu.Unlock()
			ch.close()
			h.metrics.ChannelClosed()
			return
		}
	}
	h.mu.Unlock()
}

// Broadcast serializes ev and writes it to every channel registered for
// listID. A closed channel is unregistered as a side effect; a channel with
// a full buffer has this one message dropped. Neither aborts delivery to the
// remaining channels, and nothing propagates back to the mutating request.
func (h *Hub) Broadcast(listID int64, ev event.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "list_id", listID, "type", ev.Type, "error", err)
		return
	}

	h.metrics.RecordBroadcast(string(ev.Type))

	var dead []*Channel

	h.mu.RLock()
	for ch := range h.lists[listID] {
		switch ch.trySend(data) {
		case sendOK:
			h.metrics.RecordDelivery()
		case sendDropped:
			h.metrics.RecordDrop()
			h.logger.Debug("broadcast dropped", "list_id", listID, "type", ev.Type)
		case sendClosed:
			dead = append(dead, ch)
		}
	}
	h.mu.RUnlock()

	for _, ch := range dead {
		h.Unregister(listID, ch)
		h.metrics.RecordEviction()
	}
}

// ChannelCount returns the number of channels registered for listID.
func (h *Hub) ChannelCount(listID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lists[listID])
}

// ListCount returns the number of lists with at least one open channel.
func (h *Hub) ListCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lists)
}

type nopMetrics struct{}

func (nopMetrics) RecordBroadcast(string) {}
func (nopMetrics) RecordDelivery()        {}
func (nopMetrics) RecordDrop()            {}
func (nopMetrics) RecordEviction()        {}
func (nopMetrics) ChannelOpened()         {}
func (nopMetrics) ChannelClosed()         {}
