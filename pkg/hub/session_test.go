package hub

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mahaj/community-chat/pkg/model"
	"github.com/mahaj/community-chat/pkg/store"
)

func TestUserJoinBroadcastsRosterAndNotice(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	x := connect(t, h)
	y := connect(t, h)

	event(t, h, x, "user_join", "alice@x.com")

	events := drainEvents(t, x)
	if got := decodeEvent[[]string](t, events, "user_list"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("roster = %v, want [alice]", got)
	}
	if msg := decodeEvent[model.ChatMessage](t, events, "chat_message"); msg.Content != "alice joined the chat" || msg.Type != model.TypeSystem {
		t.Fatalf("notice = %+v", msg)
	}

	// The notice also reaches connections that never identified.
	if got := decodeEvent[[]string](t, drainEvents(t, y), "user_list"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("unauthenticated roster = %v, want [alice]", got)
	}

	event(t, h, y, "user_join", "bob@y.com")
	if got := decodeEvent[[]string](t, drainEvents(t, x), "user_list"); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("roster = %v, want [alice bob]", got)
	}
	drainEvents(t, y) // clear bob's own join broadcast before the disconnect

	h.dropClient(x)
	events = drainEvents(t, y)
	if got := decodeEvent[[]string](t, events, "user_list"); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("roster after disconnect = %v, want [bob]", got)
	}
	if msg := decodeEvent[model.ChatMessage](t, events, "chat_message"); msg.Content != "alice left the chat" {
		t.Fatalf("notice = %+v", msg)
	}
}

func TestRosterKeepsDuplicateIdentities(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	a := connect(t, h)
	b := connect(t, h)

	event(t, h, a, "user_join", "alice@x.com")
	event(t, h, b, "user_join", "alice@x.com")

	if got := h.registry.Roster(); !reflect.DeepEqual(got, []string{"alice", "alice"}) {
		t.Fatalf("roster = %v, want [alice alice]", got)
	}
}

func TestReregisterOverwritesIdentityInPlace(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	a := connect(t, h)
	b := connect(t, h)

	event(t, h, a, "user_join", "alice@x.com")
	event(t, h, b, "user_join", "bob@y.com")
	event(t, h, a, "user_join", "carol@z.com")

	if got := h.registry.Roster(); !reflect.DeepEqual(got, []string{"carol", "bob"}) {
		t.Fatalf("roster = %v, want [carol bob]", got)
	}
}

func TestUserJoinWithoutAtSignUsesWholeString(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	c := connect(t, h)

	event(t, h, c, "user_join", "justalice")

	if got, _ := h.registry.LookupUser(c.ID); got != "justalice" {
		t.Fatalf("username = %q", got)
	}
}

func TestJoinCommunitySubscribesCommunityAndChannels(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general", "intros")
	c := connect(t, h)

	event(t, h, c, "join_community", map[string]string{"communityId": "C1"})

	joined := decodeEvent[model.CommunityJoined](t, drainEvents(t, c), "community_joined")
	if len(joined.Community.Channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(joined.Community.Channels))
	}
	if joined.Message != "Successfully joined community and channels" {
		t.Fatalf("message = %q", joined.Message)
	}

	rooms := h.registry.Rooms(c.ID)
	if len(rooms) != 3 {
		t.Fatalf("room-set = %v, want 3 rooms", rooms)
	}
	want := map[string]bool{"community:C1": true, "channel:general": true, "channel:intros": true}
	for _, room := range rooms {
		if !want[room] {
			t.Fatalf("unexpected room %q", room)
		}
	}
}

func TestJoinCommunityNotFound(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	c := connect(t, h)

	event(t, h, c, "join_community", map[string]string{"communityId": "nope"})

	requireError(t, drainEvents(t, c), "Community not found")
	if rooms := h.registry.Rooms(c.ID); len(rooms) != 0 {
		t.Fatalf("room-set = %v, want empty", rooms)
	}
}

func TestJoinChannelReturnsHistoryNewestFirst(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general")
	for _, content := range []string{"first", "second", "third"} {
		msg := &model.Message{ChannelID: "general", Author: "alice", Content: content, Type: model.TypeUser}
		if err := st.SaveMessage(context.Background(), msg); err != nil {
			t.Fatal(err)
		}
	}
	c := connect(t, h)

	event(t, h, c, "join_channel", map[string]string{"channelId": "general"})

	joined := decodeEvent[model.ChannelJoined](t, drainEvents(t, c), "channel_joined")
	if joined.Channel.ID != "general" {
		t.Fatalf("channel = %q", joined.Channel.ID)
	}
	if len(joined.RecentMessages) != 3 {
		t.Fatalf("history = %d messages, want 3", len(joined.RecentMessages))
	}
	if joined.RecentMessages[0].Content != "third" || joined.RecentMessages[2].Content != "first" {
		t.Fatalf("history not newest first: %+v", joined.RecentMessages)
	}
	if joined.RecentMessages[0].Author.Username != "alice" {
		t.Fatalf("author = %+v", joined.RecentMessages[0].Author)
	}

	if rooms := h.registry.Rooms(c.ID); len(rooms) != 1 || rooms[0] != "channel:general" {
		t.Fatalf("room-set = %v, want [channel:general]", rooms)
	}
}

func TestJoinChannelNotFound(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	c := connect(t, h)

	event(t, h, c, "join_channel", map[string]string{"channelId": "nope"})

	requireError(t, drainEvents(t, c), "Channel not found")
}

type failingStore struct {
	store.Store
	failHistory bool
	failSave    bool
}

func (f *failingStore) FindRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	if f.failHistory {
		return nil, errors.New("history unavailable")
	}
	return f.Store.FindRecentMessages(ctx, channelID, limit)
}

func (f *failingStore) SaveMessage(ctx context.Context, m *model.Message) error {
	if f.failSave {
		return errors.New("write rejected")
	}
	return f.Store.SaveMessage(ctx, m)
}

func TestJoinChannelHistoryFailureRollsBackSubscription(t *testing.T) {
	st := store.NewMemory()
	seedCommunity(t, st, "C1", "general")
	h := newTestHub(t, &failingStore{Store: st, failHistory: true})
	c := connect(t, h)

	event(t, h, c, "join_channel", map[string]string{"channelId": "general"})

	events := drainEvents(t, c)
	requireError(t, events, "Failed to join channel")
	requireNoEvent(t, events, "channel_joined")
	if rooms := h.registry.Rooms(c.ID); len(rooms) != 0 {
		t.Fatalf("room-set = %v, want empty after rollback", rooms)
	}
}

func TestLeaveChannelIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general")
	c := connect(t, h)

	event(t, h, c, "join_channel", map[string]string{"channelId": "general"})
	drainEvents(t, c)

	event(t, h, c, "leave_channel", map[string]string{"channelId": "general"})
	event(t, h, c, "leave_channel", map[string]string{"channelId": "general"})

	if events := drainEvents(t, c); len(events) != 0 {
		t.Fatalf("leave_channel emitted %v, want silence", events)
	}
	if rooms := h.registry.Rooms(c.ID); len(rooms) != 0 {
		t.Fatalf("room-set = %v, want empty", rooms)
	}
}

func TestSendChannelMessageFansOutToChannelRoom(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general")

	alice := connect(t, h)
	bob := connect(t, h)
	event(t, h, alice, "user_join", "alice@x.com")
	event(t, h, alice, "join_channel", map[string]string{"channelId": "general"})
	event(t, h, bob, "user_join", "bob@y.com")
	event(t, h, bob, "join_channel", map[string]string{"channelId": "general"})
	drainEvents(t, alice)
	drainEvents(t, bob)

	event(t, h, alice, "send_channel_message", map[string]string{"channelId": "general", "content": "hi"})

	for _, c := range []*Client{alice, bob} {
		msg := decodeEvent[model.ChannelMessage](t, drainEvents(t, c), "channel_message")
		if msg.Content != "hi" || msg.Author.Username != "alice" || msg.Type != model.TypeUser {
			t.Fatalf("broadcast = %+v", msg)
		}
		if msg.CreatedAt.IsZero() || msg.Timestamp.IsZero() {
			t.Fatalf("timestamps missing: %+v", msg)
		}
	}

	persisted, err := st.FindRecentMessages(context.Background(), "general", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 1 || persisted[0].Type != model.TypeUser || persisted[0].Author != "alice" {
		t.Fatalf("persisted = %+v", persisted)
	}
}

func TestChannelMessageSkipsCommunityRoom(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general")
	seedCommunity(t, st, "C2") // no channels

	alice := connect(t, h)
	event(t, h, alice, "user_join", "alice@x.com")
	event(t, h, alice, "join_channel", map[string]string{"channelId": "general"})

	lurker := connect(t, h)
	event(t, h, lurker, "join_community", map[string]string{"communityId": "C2"})
	drainEvents(t, alice)
	drainEvents(t, lurker)

	event(t, h, alice, "send_channel_message", map[string]string{"channelId": "general", "content": "hi"})

	requireNoEvent(t, drainEvents(t, lurker), "channel_message")
}

func TestSendChannelMessageUnauthenticated(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general")

	c := connect(t, h)
	watcher := connect(t, h)
	event(t, h, watcher, "user_join", "bob@y.com")
	event(t, h, watcher, "join_channel", map[string]string{"channelId": "general"})
	drainEvents(t, watcher)

	event(t, h, c, "send_channel_message", map[string]string{"channelId": "general", "content": "hi"})

	requireError(t, drainEvents(t, c), "User not authenticated")
	requireNoEvent(t, drainEvents(t, watcher), "channel_message")

	persisted, err := st.FindRecentMessages(context.Background(), "general", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 0 {
		t.Fatalf("persisted = %+v, want none", persisted)
	}
}

func TestSendChannelMessageUnknownChannel(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	c := connect(t, h)
	event(t, h, c, "user_join", "alice@x.com")
	drainEvents(t, c)

	event(t, h, c, "send_channel_message", map[string]string{"channelId": "nope", "content": "hi"})

	requireError(t, drainEvents(t, c), "Channel not found")
}

func TestSendChannelMessagePersistFailureSkipsBroadcast(t *testing.T) {
	st := store.NewMemory()
	seedCommunity(t, st, "C1", "general")
	h := newTestHub(t, &failingStore{Store: st, failSave: true})

	alice := connect(t, h)
	bob := connect(t, h)
	event(t, h, alice, "user_join", "alice@x.com")
	event(t, h, alice, "join_channel", map[string]string{"channelId": "general"})
	event(t, h, bob, "user_join", "bob@y.com")
	event(t, h, bob, "join_channel", map[string]string{"channelId": "general"})
	drainEvents(t, alice)
	drainEvents(t, bob)

	event(t, h, alice, "send_channel_message", map[string]string{"channelId": "general", "content": "hi"})

	requireError(t, drainEvents(t, alice), "Failed to send message")
	requireNoEvent(t, drainEvents(t, bob), "channel_message")
}

func TestDisconnectClearsRoomsAndStopsDelivery(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general")

	alice := connect(t, h)
	bob := connect(t, h)
	event(t, h, alice, "user_join", "alice@x.com")
	event(t, h, alice, "join_channel", map[string]string{"channelId": "general"})
	event(t, h, bob, "user_join", "bob@y.com")
	event(t, h, bob, "join_channel", map[string]string{"channelId": "general"})
	drainEvents(t, alice)
	drainEvents(t, bob)

	h.dropClient(bob)
	if rooms := h.registry.Rooms(bob.ID); len(rooms) != 0 {
		t.Fatalf("room-set after disconnect = %v", rooms)
	}
	drainEvents(t, bob)

	event(t, h, alice, "send_channel_message", map[string]string{"channelId": "general", "content": "still here?"})

	requireNoEvent(t, drainEvents(t, bob), "channel_message")
	if msg := decodeEvent[model.ChannelMessage](t, drainEvents(t, alice), "channel_message"); msg.Content != "still here?" {
		t.Fatalf("broadcast = %+v", msg)
	}
}

// droppingStore simulates a disconnect racing an in-flight fetch.
type droppingStore struct {
	store.Store
	drop func()
}

func (d *droppingStore) FindCommunityByID(ctx context.Context, id string) (*model.Community, error) {
	c, err := d.Store.FindCommunityByID(ctx, id)
	d.drop()
	return c, err
}

func TestDisconnectDuringFetchLeavesNoSubscriptions(t *testing.T) {
	st := store.NewMemory()
	seedCommunity(t, st, "C1", "general", "intros")

	var h *Hub
	var c *Client
	h = newTestHub(t, &droppingStore{Store: st, drop: func() { h.dropClient(c) }})
	c = connect(t, h)

	event(t, h, c, "join_community", map[string]string{"communityId": "C1"})

	// The fetch succeeded but the connection was gone on resume: nothing is
	// applied and the acknowledgment is a no-op.
	events := drainEvents(t, c)
	requireNoEvent(t, events, "community_joined")
	if rooms := h.registry.Rooms(c.ID); rooms != nil {
		t.Fatalf("room-set = %v, want none", rooms)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rooms) != 0 {
		t.Fatalf("rooms map = %v, want empty", h.rooms)
	}
}

// Existence checks from an earlier handler run don't carry over: each
// operation re-validates against the store and answers NotFound.
func TestCommunityDeletedBetweenOperations(t *testing.T) {
	st := store.NewMemory()
	h := newTestHub(t, st)
	seedCommunity(t, st, "C1", "general")
	c := connect(t, h)

	event(t, h, c, "join_community", map[string]string{"communityId": "C1"})
	drainEvents(t, c)

	st.DeleteCommunity("C1")
	st.DeleteChannel("general")

	event(t, h, c, "user_join", "alice@x.com")
	drainEvents(t, c)
	event(t, h, c, "send_channel_message", map[string]string{"channelId": "general", "content": "hi"})

	requireError(t, drainEvents(t, c), "Channel not found")
}
