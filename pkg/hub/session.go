package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mahaj/community-chat/pkg/model"
	"github.com/mahaj/community-chat/pkg/store"
)

// handleUserJoin registers the connection's identity. The payload is the
// raw email-like string; the display name is its local part. Identity is
// assumed trustworthy upstream, nothing is verified here.
func (h *Hub) handleUserJoin(_ context.Context, c *Client, data json.RawMessage) {
	var email string
	if err := json.Unmarshal(data, &email); err != nil || email == "" {
		h.sendError(c.ID, "Invalid message format")
		return
	}

	username := email
	if i := strings.Index(email, "@"); i >= 0 {
		username = email[:i]
	}

	h.registry.Register(c.ID, username)
	h.logger.Info("user joined", slog.String("conn_id", c.ID), slog.String("username", username))
	h.broadcastPresence(username, "joined")
}

// broadcastPresence resends the full roster to everyone (never a delta),
// alongside a system notice naming who joined or left.
func (h *Hub) broadcastPresence(username, verb string) {
	h.broadcastEvent("user_list", h.registry.Roster())
	h.broadcastEvent("chat_message", model.ChatMessage{
		Type:      model.TypeSystem,
		Content:   username + " " + verb + " the chat",
		Timestamp: time.Now().UTC(),
	})
}

// handleJoinCommunity subscribes the connection to the community room and to
// every channel currently on the community. The room-set is applied in one
// step after the fetch, and only if the connection survived it, so a failed
// or raced join leaves no partial subscriptions behind.
func (h *Hub) handleJoinCommunity(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		CommunityID string `json:"communityId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.CommunityID == "" {
		h.sendError(c.ID, "Invalid message format")
		return
	}

	community, err := h.store.FindCommunityByID(ctx, req.CommunityID)
	if errors.Is(err, store.ErrNotFound) {
		h.sendError(c.ID, "Community not found")
		return
	}
	if err != nil {
		h.logger.Error("community lookup failed", slog.String("community_id", req.CommunityID), slog.Any("error", err))
		h.sendError(c.ID, "Failed to join community")
		return
	}

	rooms := make([]string, 0, len(community.Channels)+1)
	rooms = append(rooms, communityRoom(community.ID))
	for _, ch := range community.Channels {
		rooms = append(rooms, channelRoom(ch.ID))
	}
	if !h.subscribe(c, rooms...) {
		// Disconnected while the fetch was in flight.
		return
	}

	h.sendEvent(c.ID, "community_joined", model.CommunityJoined{
		Community: community,
		Message:   "Successfully joined community and channels",
	})
}

// handleJoinChannel subscribes the connection to a single channel room and
// returns the channel's recent history, newest first, to the requester only.
func (h *Hub) handleJoinChannel(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ChannelID string `json:"channelId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ChannelID == "" {
		h.sendError(c.ID, "Invalid message format")
		return
	}

	channel, err := h.store.FindChannelByID(ctx, req.ChannelID)
	if errors.Is(err, store.ErrNotFound) {
		h.sendError(c.ID, "Channel not found")
		return
	}
	if err != nil {
		h.logger.Error("channel lookup failed", slog.String("channel_id", req.ChannelID), slog.Any("error", err))
		h.sendError(c.ID, "Failed to join channel")
		return
	}

	room := channelRoom(channel.ID)
	if !h.subscribe(c, room) {
		return
	}

	history, err := h.store.FindRecentMessages(ctx, channel.ID, h.historyLimit)
	if err != nil {
		// All-or-nothing: roll the subscription back.
		h.unsubscribe(c, room)
		h.logger.Error("history load failed", slog.String("channel_id", channel.ID), slog.Any("error", err))
		h.sendError(c.ID, "Failed to join channel")
		return
	}

	recent := make([]model.ChannelMessage, 0, len(history))
	for _, m := range history {
		recent = append(recent, enrich(m, m.CreatedAt))
	}

	h.sendEvent(c.ID, "channel_joined", model.ChannelJoined{
		Channel:        channel,
		RecentMessages: recent,
	})
}

// handleLeaveChannel drops the channel room from the connection. Silent and
// idempotent.
func (h *Hub) handleLeaveChannel(_ context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ChannelID string `json:"channelId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ChannelID == "" {
		h.sendError(c.ID, "Invalid message format")
		return
	}
	h.unsubscribe(c, channelRoom(req.ChannelID))
}

// handleSendChannelMessage validates, persists, and fans a message out to
// the channel room only, never the parent community room. Failures are
// reported to the sender and nothing is broadcast.
func (h *Hub) handleSendChannelMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ChannelID string `json:"channelId"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ChannelID == "" {
		h.sendError(c.ID, "Invalid message format")
		return
	}

	username, ok := h.registry.LookupUser(c.ID)
	if !ok {
		h.sendError(c.ID, "User not authenticated")
		return
	}

	channel, err := h.store.FindChannelByID(ctx, req.ChannelID)
	if errors.Is(err, store.ErrNotFound) {
		h.sendError(c.ID, "Channel not found")
		return
	}
	if err != nil {
		h.logger.Error("channel lookup failed", slog.String("channel_id", req.ChannelID), slog.Any("error", err))
		h.sendError(c.ID, "Failed to send message")
		return
	}

	msg := &model.Message{
		ChannelID: channel.ID,
		Author:    username,
		Content:   req.Content,
		Type:      model.TypeUser,
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		h.logger.Error("message save failed", slog.String("channel_id", channel.ID), slog.Any("error", err))
		h.sendError(c.ID, "Failed to send message")
		return
	}

	// The broadcast timestamp is taken here and may trail CreatedAt, which
	// the store assigned at persistence time. Both are sent.
	h.broadcastRoomEvent(channelRoom(channel.ID), "channel_message", enrich(*msg, time.Now().UTC()))

	if err := h.sink.Publish(ctx, msg); err != nil {
		h.logger.Warn("firehose publish failed", slog.Int64("message_id", msg.ID), slog.Any("error", err))
	}
}

func enrich(m model.Message, ts time.Time) model.ChannelMessage {
	return model.ChannelMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Type:      m.Type,
		Author:    model.Author{Username: m.Author},
		CreatedAt: m.CreatedAt,
		Timestamp: ts,
	}
}
