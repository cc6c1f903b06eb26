package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mahaj/community-chat/pkg/model"
)

// Envelope is the frame format in both directions: an event name plus its
// payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage)

// dispatch routes one inbound frame to its handler. A handler failure is
// reported to the sender only; it never ends the session.
func (h *Hub) dispatch(c *Client, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		h.sendError(c.ID, "Invalid message format")
		return
	}

	handler, ok := h.handlers[env.Event]
	if !ok {
		h.logger.Warn("unknown event", slog.String("event", env.Event), slog.String("conn_id", c.ID))
		h.sendError(c.ID, "Unknown event: "+env.Event)
		return
	}

	handler(context.Background(), c, env.Data)
}

func encodeEvent(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: payload})
}

// sendEvent emits an event to a single connection; a no-op once the
// connection is gone.
func (h *Hub) sendEvent(connID, event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.logger.Error("encode event failed", slog.String("event", event), slog.Any("error", err))
		return
	}
	h.sendTo(connID, frame)
}

func (h *Hub) sendError(connID, message string) {
	h.sendEvent(connID, "error", model.ErrorEvent{Message: message})
}

func (h *Hub) broadcastEvent(event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.logger.Error("encode event failed", slog.String("event", event), slog.Any("error", err))
		return
	}
	h.broadcastAll(frame)
}

func (h *Hub) broadcastRoomEvent(room, event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.logger.Error("encode event failed", slog.String("event", event), slog.Any("error", err))
		return
	}
	h.broadcastRoom(room, frame)
}
