// Package realtime exposes the hub's push channels over the wire: a
// text/event-stream endpoint and a WebSocket endpoint carrying the same
// serialized events. Both emit periodic heartbeats so clients can detect a
// silently dead connection.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmfalke/sharelist/internal/event"
	"github.com/dmfalke/sharelist/internal/hub"
)

type Config struct {
	HeartbeatInterval time.Duration
	ChannelBuffer     int
}

// Handler serves the per-list event stream endpoints. Authorization is
// resolved by the caller's middleware/handler chain via Authorize.
type Handler struct {
	hub       *hub.Hub
	authorize AuthorizeFunc
	cfg       Config
	logger    *slog.Logger
}

// AuthorizeFunc reports whether the request may view the list's stream.
// It writes its own failure response when denying.
type AuthorizeFunc func(w http.ResponseWriter, r *http.Request, listID int64) bool

func NewHandler(h *hub.Hub, authorize AuthorizeFunc, cfg Config, logger *slog.Logger) *Handler {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Handler{hub: h, authorize: authorize, cfg: cfg, logger: logger}
}

// ServeSSE streams list events as `data: <json>` frames until the client
// disconnects. Sends never block on the client: the hub drops messages for
// a full buffer and the heartbeat keeps the stream verifiably alive.
func (h *Handler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListID(r)
	if err != nil {
		http.Error(w, `{"error":"invalid list_id"}`, http.StatusBadRequest)
		return
	}
	if !h.authorize(w, r, listID) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := hub.NewChannel(h.cfg.ChannelBuffer)
	h.hub.Register(listID, ch)
	defer func() {
		ch.Closed()
		h.hub.Unregister(listID, ch)
	}()

	heartbeat, err := json.Marshal(event.Heartbeat())
	if err != nil {
		h.logger.Error("marshal heartbeat", "error", err)
		return
	}

	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch.Recv():
			if !ok {
				return
			}
			if err := writeFrame(w, flusher, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := writeFrame(w, flusher, heartbeat); err != nil {
				return
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, data []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func parseListID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("list_id"), 10, 64)
}
