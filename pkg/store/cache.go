package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/community-chat/pkg/model"
)

// Cached is a read-through Redis cache over another Store. Community and
// channel lookups are cached with a TTL; writes invalidate. Message reads
// and writes pass straight through. Cache failures degrade to the inner
// store rather than surfacing.
type Cached struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Store = (*Cached)(nil)

func NewCached(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "store_cache")),
	}
}

func (c *Cached) Close() error {
	return c.client.Close()
}

func (c *Cached) FindCommunityByID(ctx context.Context, id string) (*model.Community, error) {
	key := communityKey(id)
	var cached model.Community
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}
	community, err := c.inner.FindCommunityByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, community)
	return community, nil
}

func (c *Cached) ListCommunities(ctx context.Context) ([]model.Community, error) {
	return c.inner.ListCommunities(ctx)
}

func (c *Cached) SaveCommunity(ctx context.Context, community *model.Community) error {
	if err := c.inner.SaveCommunity(ctx, community); err != nil {
		return err
	}
	c.invalidate(ctx, communityKey(community.ID))
	return nil
}

func (c *Cached) AddCommunityMember(ctx context.Context, communityID, member string) error {
	if err := c.inner.AddCommunityMember(ctx, communityID, member); err != nil {
		return err
	}
	c.invalidate(ctx, communityKey(communityID))
	return nil
}

func (c *Cached) FindChannelByID(ctx context.Context, id string) (*model.Channel, error) {
	key := channelKey(id)
	var cached model.Channel
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}
	channel, err := c.inner.FindChannelByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, channel)
	return channel, nil
}

func (c *Cached) SaveChannel(ctx context.Context, ch *model.Channel) error {
	if err := c.inner.SaveChannel(ctx, ch); err != nil {
		return err
	}
	// The owning community embeds channel metadata, so drop both entries.
	c.invalidate(ctx, channelKey(ch.ID), communityKey(ch.CommunityID))
	return nil
}

func (c *Cached) FindRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	return c.inner.FindRecentMessages(ctx, channelID, limit)
}

func (c *Cached) SaveMessage(ctx context.Context, m *model.Message) error {
	return c.inner.SaveMessage(ctx, m)
}

func (c *Cached) get(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", slog.String("key", key), slog.Any("error", err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("cache entry corrupt", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

func (c *Cached) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (c *Cached) invalidate(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", slog.Any("keys", keys), slog.Any("error", err))
	}
}

func communityKey(id string) string {
	return fmt.Sprintf("cache:community:%s", id)
}

func channelKey(id string) string {
	return fmt.Sprintf("cache:channel:%s", id)
}
