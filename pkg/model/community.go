package model

import "time"

// Community is a top-level grouping owning a set of channels and a member
// list. Lookups return it with Channels resolved.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Channels    []Channel `json:"channels"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

// Channel is a sub-room within a community where messages are exchanged.
type Channel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CommunityID string    `json:"community_id"`
	CreatedAt   time.Time `json:"created_at"`
}
