// Package store is the persistence gateway for communities, channels, and
// messages. The realtime hub and the REST api both talk to the Store
// interface; backends are ScyllaDB for deployments and an in-memory map for
// development and tests, with an optional Redis read-through cache on top.
package store

import (
	"context"
	"errors"

	"github.com/mahaj/community-chat/pkg/model"
)

// ErrNotFound is returned when a referenced community or channel is absent.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	// FindCommunityByID returns the community with its channel list resolved.
	FindCommunityByID(ctx context.Context, id string) (*model.Community, error)
	ListCommunities(ctx context.Context) ([]model.Community, error)
	SaveCommunity(ctx context.Context, c *model.Community) error
	// AddCommunityMember is idempotent.
	AddCommunityMember(ctx context.Context, communityID, member string) error

	FindChannelByID(ctx context.Context, id string) (*model.Channel, error)
	SaveChannel(ctx context.Context, ch *model.Channel) error

	// FindRecentMessages returns up to limit messages, newest first.
	FindRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error)
	// SaveMessage assigns ID and CreatedAt on the passed message.
	SaveMessage(ctx context.Context, m *model.Message) error
}
