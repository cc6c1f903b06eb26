package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/mahaj/community-chat/pkg/firehose"
	"github.com/mahaj/community-chat/pkg/model"
	"github.com/mahaj/community-chat/pkg/store"
)

func newTestHub(t *testing.T, st store.Store) *Hub {
	t.Helper()
	return New(st, firehose.Nop{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// connect attaches a client without a websocket; tests read emitted frames
// straight off the send channel.
func connect(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{ID: uuid.NewString(), hub: h, send: make(chan []byte, 64)}
	h.addClient(c)
	return c
}

func event(t *testing.T, h *Hub, c *Client, name string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", name, err)
	}
	frame, err := json.Marshal(Envelope{Event: name, Data: payload})
	if err != nil {
		t.Fatalf("marshal %s frame: %v", name, err)
	}
	h.dispatch(c, frame)
}

// drainEvents empties the client's send buffer into decoded envelopes.
func drainEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("bad frame %q: %v", frame, err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func findEvent(events []Envelope, name string) (Envelope, bool) {
	for _, env := range events {
		if env.Event == name {
			return env, true
		}
	}
	return Envelope{}, false
}

func decodeEvent[T any](t *testing.T, events []Envelope, name string) T {
	t.Helper()
	env, ok := findEvent(events, name)
	if !ok {
		t.Fatalf("no %s event in %v", name, events)
	}
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	return v
}

func requireNoEvent(t *testing.T, events []Envelope, name string) {
	t.Helper()
	if _, ok := findEvent(events, name); ok {
		t.Fatalf("unexpected %s event", name)
	}
}

func requireError(t *testing.T, events []Envelope, message string) {
	t.Helper()
	e := decodeEvent[model.ErrorEvent](t, events, "error")
	if e.Message != message {
		t.Fatalf("error message = %q, want %q", e.Message, message)
	}
}

// seedCommunity stores a community whose channels use their names as ids.
func seedCommunity(t *testing.T, st *store.Memory, id string, channels ...string) *model.Community {
	t.Helper()
	community := &model.Community{ID: id, Name: id, Members: []string{}}
	for _, name := range channels {
		ch := &model.Channel{ID: name, Name: name, CommunityID: id}
		if err := st.SaveChannel(context.Background(), ch); err != nil {
			t.Fatalf("seed channel %s: %v", name, err)
		}
		community.Channels = append(community.Channels, *ch)
	}
	if err := st.SaveCommunity(context.Background(), community); err != nil {
		t.Fatalf("seed community %s: %v", id, err)
	}
	return community
}
