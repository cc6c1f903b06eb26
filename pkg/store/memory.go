package store

import (
	"context"
	"sync"
	"time"

	"github.com/mahaj/community-chat/pkg/model"
	"github.com/mahaj/community-chat/pkg/snowflake"
)

// Memory implements Store on process-local maps. It backs development mode
// and tests; deployments use Scylla.
type Memory struct {
	mu          sync.RWMutex
	communities map[string]*model.Community
	channels    map[string]*model.Channel
	messages    map[string][]model.Message // channel id -> oldest first
	ids         *snowflake.Generator
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	ids, _ := snowflake.New(0)
	return &Memory{
		communities: make(map[string]*model.Community),
		channels:    make(map[string]*model.Channel),
		messages:    make(map[string][]model.Message),
		ids:         ids,
	}
}

func (m *Memory) FindCommunityByID(_ context.Context, id string) (*model.Community, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.communities[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	out.Channels = m.resolveChannels(c)
	out.Members = append([]string{}, c.Members...)
	return &out, nil
}

func (m *Memory) ListCommunities(_ context.Context) ([]model.Community, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	communities := make([]model.Community, 0, len(m.communities))
	for _, c := range m.communities {
		out := *c
		out.Channels = m.resolveChannels(c)
		out.Members = append([]string{}, c.Members...)
		communities = append(communities, out)
	}
	return communities, nil
}

func (m *Memory) SaveCommunity(_ context.Context, c *model.Community) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := *c
	stored.Members = append([]string{}, c.Members...)
	stored.Channels = append([]model.Channel{}, c.Channels...)
	m.communities[c.ID] = &stored
	return nil
}

func (m *Memory) AddCommunityMember(_ context.Context, communityID, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.communities[communityID]
	if !ok {
		return ErrNotFound
	}
	for _, existing := range c.Members {
		if existing == member {
			return nil
		}
	}
	c.Members = append(c.Members, member)
	return nil
}

func (m *Memory) FindChannelByID(_ context.Context, id string) (*model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *ch
	return &out, nil
}

func (m *Memory) SaveChannel(_ context.Context, ch *model.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	stored := *ch
	m.channels[ch.ID] = &stored
	return nil
}

func (m *Memory) FindRecentMessages(_ context.Context, channelID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.messages[channelID]
	if limit > len(all) {
		limit = len(all)
	}
	// Stored oldest first; return newest first.
	out := make([]model.Message, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *Memory) SaveMessage(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg.ID = m.ids.Next()
	msg.CreatedAt = time.Now().UTC()
	m.messages[msg.ChannelID] = append(m.messages[msg.ChannelID], *msg)
	return nil
}

// DeleteCommunity and DeleteChannel exist for development tooling and tests;
// the REST surface does not expose deletion.

func (m *Memory) DeleteCommunity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.communities, id)
}

func (m *Memory) DeleteChannel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
}

// resolveChannels expects m.mu held.
func (m *Memory) resolveChannels(c *model.Community) []model.Channel {
	channels := make([]model.Channel, 0, len(c.Channels))
	for _, ref := range c.Channels {
		if ch, ok := m.channels[ref.ID]; ok {
			channels = append(channels, *ch)
		}
	}
	return channels
}
