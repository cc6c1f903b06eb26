package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/mahaj/community-chat/pkg/model"
	"github.com/mahaj/community-chat/pkg/snowflake"
)

// Scylla implements Store on a ScyllaDB/Cassandra cluster. Messages are
// partitioned by channel and clustered by snowflake id descending, so recent
// history is a single partition read.
type Scylla struct {
	session *gocql.Session
	ids     *snowflake.Generator
}

var _ Store = (*Scylla)(nil)

func NewScylla(hosts []string, keyspace string, node int64) (*Scylla, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect scylla: %w", err)
	}

	ids, err := snowflake.New(node)
	if err != nil {
		session.Close()
		return nil, err
	}

	return &Scylla{session: session, ids: ids}, nil
}

func (s *Scylla) Close() {
	s.session.Close()
}

func (s *Scylla) FindCommunityByID(ctx context.Context, id string) (*model.Community, error) {
	var (
		c          model.Community
		channelIDs []string
	)
	err := s.session.Query(
		`SELECT id, name, description, category, channel_ids, members, created_at FROM communities WHERE id = ?`,
		id,
	).WithContext(ctx).Scan(&c.ID, &c.Name, &c.Description, &c.Category, &channelIDs, &c.Members, &c.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find community %s: %w", id, err)
	}

	channels, err := s.resolveChannels(ctx, channelIDs)
	if err != nil {
		return nil, err
	}
	c.Channels = channels
	if c.Members == nil {
		c.Members = []string{}
	}
	return &c, nil
}

func (s *Scylla) ListCommunities(ctx context.Context) ([]model.Community, error) {
	iter := s.session.Query(
		`SELECT id, name, description, category, channel_ids, members, created_at FROM communities`,
	).WithContext(ctx).Iter()

	var (
		communities []model.Community
		c           model.Community
		channelIDs  []string
	)
	for iter.Scan(&c.ID, &c.Name, &c.Description, &c.Category, &channelIDs, &c.Members, &c.CreatedAt) {
		channels, err := s.resolveChannels(ctx, channelIDs)
		if err != nil {
			iter.Close()
			return nil, err
		}
		c.Channels = channels
		if c.Members == nil {
			c.Members = []string{}
		}
		communities = append(communities, c)
		c = model.Community{}
		channelIDs = nil
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	return communities, nil
}

func (s *Scylla) SaveCommunity(ctx context.Context, c *model.Community) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	channelIDs := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		channelIDs = append(channelIDs, ch.ID)
	}
	err := s.session.Query(
		`INSERT INTO communities (id, name, description, category, channel_ids, members, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Category, channelIDs, c.Members, c.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("save community %s: %w", c.ID, err)
	}
	return nil
}

func (s *Scylla) AddCommunityMember(ctx context.Context, communityID, member string) error {
	var members []string
	err := s.session.Query(
		`SELECT members FROM communities WHERE id = ?`, communityID,
	).WithContext(ctx).Scan(&members)
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find community %s: %w", communityID, err)
	}
	for _, m := range members {
		if m == member {
			return nil
		}
	}
	err = s.session.Query(
		`UPDATE communities SET members = members + ? WHERE id = ?`,
		[]string{member}, communityID,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("add member to community %s: %w", communityID, err)
	}
	return nil
}

func (s *Scylla) FindChannelByID(ctx context.Context, id string) (*model.Channel, error) {
	var ch model.Channel
	err := s.session.Query(
		`SELECT id, name, description, community_id, created_at FROM channels WHERE id = ?`,
		id,
	).WithContext(ctx).Scan(&ch.ID, &ch.Name, &ch.Description, &ch.CommunityID, &ch.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find channel %s: %w", id, err)
	}
	return &ch, nil
}

func (s *Scylla) SaveChannel(ctx context.Context, ch *model.Channel) error {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	err := s.session.Query(
		`INSERT INTO channels (id, name, description, community_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		ch.ID, ch.Name, ch.Description, ch.CommunityID, ch.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("save channel %s: %w", ch.ID, err)
	}
	return nil
}

func (s *Scylla) FindRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT channel_id, id, author, content, type, created_at FROM messages WHERE channel_id = ? ORDER BY id DESC LIMIT ?`,
		channelID, limit,
	).WithContext(ctx).Iter()

	var (
		messages []model.Message
		m        model.Message
	)
	for iter.Scan(&m.ChannelID, &m.ID, &m.Author, &m.Content, &m.Type, &m.CreatedAt) {
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("recent messages for channel %s: %w", channelID, err)
	}
	return messages, nil
}

func (s *Scylla) SaveMessage(ctx context.Context, m *model.Message) error {
	m.ID = s.ids.Next()
	m.CreatedAt = time.Now().UTC()
	err := s.session.Query(
		`INSERT INTO messages (channel_id, id, author, content, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ChannelID, m.ID, m.Author, m.Content, m.Type, m.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("save message in channel %s: %w", m.ChannelID, err)
	}
	return nil
}

func (s *Scylla) resolveChannels(ctx context.Context, ids []string) ([]model.Channel, error) {
	channels := make([]model.Channel, 0, len(ids))
	for _, id := range ids {
		ch, err := s.FindChannelByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Channel row deleted out from under the community list.
			continue
		}
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, nil
}
