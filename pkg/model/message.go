package model

import "time"

type MessageType string

const (
	TypeUser   MessageType = "user"
	TypeSystem MessageType = "system"
)

// Message is the persisted form of a channel message. ID and CreatedAt are
// assigned by the store at save time.
type Message struct {
	ID        int64       `json:"id"`
	ChannelID string      `json:"channel_id"`
	Author    string      `json:"author"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
