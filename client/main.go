package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/mahaj/community-chat/pkg/model"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func send(c *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.WriteJSON(envelope{Event: event, Data: payload})
}

func printEvent(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		fmt.Printf("<< %s\n", raw)
		return
	}

	switch env.Event {
	case "user_list":
		var users []string
		json.Unmarshal(env.Data, &users)
		fmt.Printf("-- online: %s\n", strings.Join(users, ", "))
	case "chat_message":
		var m model.ChatMessage
		json.Unmarshal(env.Data, &m)
		fmt.Printf("** %s\n", m.Content)
	case "community_joined":
		var cj model.CommunityJoined
		json.Unmarshal(env.Data, &cj)
		fmt.Printf("-- joined community %q with %d channels:\n", cj.Community.Name, len(cj.Community.Channels))
		for _, ch := range cj.Community.Channels {
			fmt.Printf("   #%s (%s) id=%s\n", ch.Name, ch.Description, ch.ID)
		}
	case "channel_joined":
		var cj model.ChannelJoined
		json.Unmarshal(env.Data, &cj)
		fmt.Printf("-- joined #%s, %d recent messages\n", cj.Channel.Name, len(cj.RecentMessages))
		// History arrives newest first; replay it oldest first.
		for i := len(cj.RecentMessages) - 1; i >= 0; i-- {
			m := cj.RecentMessages[i]
			fmt.Printf("   [%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.Author.Username, m.Content)
		}
	case "channel_message":
		var m model.ChannelMessage
		json.Unmarshal(env.Data, &m)
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.Author.Username, m.Content)
	case "error":
		var e model.ErrorEvent
		json.Unmarshal(env.Data, &e)
		fmt.Printf("!! %s\n", e.Message)
	default:
		fmt.Printf("<< %s %s\n", env.Event, env.Data)
	}
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	email := flag.String("user", "user1@example.com", "email to join as")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	if err := send(c, "user_join", *email); err != nil {
		log.Fatal("user_join:", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			printEvent(raw)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		os.Exit(0)
	}()

	fmt.Println("commands: /community <id> | /join <channel-id> | /leave <channel-id> | text sends to current channel")

	currentChannel := ""
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "/community "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/community "))
			send(c, "join_community", map[string]string{"communityId": id})
		case strings.HasPrefix(line, "/join "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
			currentChannel = id
			send(c, "join_channel", map[string]string{"channelId": id})
		case strings.HasPrefix(line, "/leave "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/leave "))
			if id == currentChannel {
				currentChannel = ""
			}
			send(c, "leave_channel", map[string]string{"channelId": id})
		default:
			if currentChannel == "" {
				fmt.Println("!! join a channel first: /join <channel-id>")
				continue
			}
			send(c, "send_channel_message", map[string]string{"channelId": currentChannel, "content": line})
		}
	}

	<-done
}
