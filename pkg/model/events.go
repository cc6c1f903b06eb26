package model

import "time"

// Payload types for outbound realtime events.

type Author struct {
	Username string `json:"username"`
}

// ChatMessage carries system notices (join/leave) broadcast to everyone.
type ChatMessage struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChannelMessage is the enriched form of a Message sent to clients, both in
// channel history and as a live broadcast. Timestamp is taken at emit time
// and may differ from CreatedAt, which is assigned at persistence time; for
// history entries the two are equal.
type ChannelMessage struct {
	ID        int64       `json:"id"`
	ChannelID string      `json:"channel_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Author    Author      `json:"author"`
	CreatedAt time.Time   `json:"created_at"`
	Timestamp time.Time   `json:"timestamp"`
}

type CommunityJoined struct {
	Community *Community `json:"community"`
	Message   string     `json:"message"`
}

type ChannelJoined struct {
	Channel        *Channel         `json:"channel"`
	RecentMessages []ChannelMessage `json:"recentMessages"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
