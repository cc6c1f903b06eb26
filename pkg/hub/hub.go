// Package hub is the realtime core: it tracks live connections, keeps room
// membership and transport subscriptions in lockstep, recomputes presence,
// and fans chat messages out to channel rooms.
package hub

import (
	"log/slog"
	"sync"

	"github.com/mahaj/community-chat/pkg/firehose"
	"github.com/mahaj/community-chat/pkg/store"
)

const defaultHistoryLimit = 50

// Room keys. A community room and the channel rooms of its channels are
// independent broadcast groups; joining a community subscribes to all of
// them, but channel messages go to the channel room only.
func communityRoom(id string) string { return "community:" + id }
func channelRoom(id string) string   { return "channel:" + id }

type Hub struct {
	mu       sync.RWMutex
	conns    map[string]*Client
	rooms    map[string]map[*Client]struct{}
	registry *Registry

	store        store.Store
	sink         firehose.Sink
	logger       *slog.Logger
	historyLimit int
	handlers     map[string]handlerFunc
}

func New(st store.Store, sink firehose.Sink, logger *slog.Logger) *Hub {
	h := &Hub{
		conns:        make(map[string]*Client),
		rooms:        make(map[string]map[*Client]struct{}),
		registry:     NewRegistry(),
		store:        st,
		sink:         sink,
		logger:       logger.With(slog.String("component", "hub")),
		historyLimit: defaultHistoryLimit,
	}
	h.handlers = map[string]handlerFunc{
		"user_join":            h.handleUserJoin,
		"join_community":       h.handleJoinCommunity,
		"join_channel":         h.handleJoinChannel,
		"send_channel_message": h.handleSendChannelMessage,
		"leave_channel":        h.handleLeaveChannel,
	}
	return h
}

// Registry exposes presence lookups to other surfaces (and tests).
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID] = c
	h.registry.Connect(c.ID)
}

// dropClient tears a connection down: every room in its room-set is
// unsubscribed and the registry entry deleted before the lock is released,
// so no fan-out started afterwards can reach the client. Idempotent.
func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.conns[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.ID)
	username, rooms, identified := h.registry.Unregister(c.ID)
	for _, room := range rooms {
		h.removeFromRoom(c, room)
	}
	close(c.send)
	h.mu.Unlock()

	h.logger.Info("client disconnected", slog.String("conn_id", c.ID))
	if identified {
		h.broadcastPresence(username, "left")
	}
}

// subscribe adds the client to each room and records the rooms in the
// registry as one step. It refuses (and applies nothing) when the
// connection is no longer tracked, which covers a disconnect that raced a
// store fetch.
func (h *Hub) subscribe(c *Client, rooms ...string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.ID]; !ok {
		return false
	}
	for _, room := range rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
		h.registry.addRoom(c.ID, room)
	}
	return true
}

// unsubscribe removes the client from a room and the room from its room-set.
// Idempotent.
func (h *Hub) unsubscribe(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(c, room)
	h.registry.removeRoom(c.ID, room)
}

// removeFromRoom expects h.mu held.
func (h *Hub) removeFromRoom(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// broadcastRoom delivers a frame to every member of a room. Delivery is
// fire-and-forget; clients with a full send buffer are dropped, as a stalled
// reader must not block the room.
func (h *Hub) broadcastRoom(room string, frame []byte) {
	var stalled []*Client

	h.mu.RLock()
	for c := range h.rooms[room] {
		if !h.trySend(c, frame) {
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	h.dropStalled(stalled)
}

// broadcastAll delivers a frame to every connected client, identified or not.
func (h *Hub) broadcastAll(frame []byte) {
	var stalled []*Client

	h.mu.RLock()
	for _, c := range h.conns {
		if !h.trySend(c, frame) {
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	h.dropStalled(stalled)
}

// sendTo routes a frame to one connection id. It is a silent no-op once the
// connection is gone, so acknowledgments resumed after a disconnect land
// nowhere instead of on a closed channel.
func (h *Hub) sendTo(connID string, frame []byte) {
	var stalled *Client

	h.mu.RLock()
	if c, ok := h.conns[connID]; ok && !h.trySend(c, frame) {
		stalled = c
	}
	h.mu.RUnlock()

	if stalled != nil {
		h.dropClient(stalled)
	}
}

// trySend expects h.mu held (read or write); the send channel is only closed
// under the write lock, so a buffered send here cannot hit a closed channel.
func (h *Hub) trySend(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) dropStalled(stalled []*Client) {
	for _, c := range stalled {
		h.logger.Warn("dropping client with full send buffer", slog.String("conn_id", c.ID))
		h.dropClient(c)
	}
}
