package bot

import (
	"context"
	"fmt"

	"github.com/neoclaw-ai/roombot/internal/transport"
)

// Room is the room an event happened in.
type Room struct {
	ID      string
	Name    string
	Topic   string
	Version string
	Members int

	client transport.Client
}

// NewRoom builds a room projection bound to client for replies.
func NewRoom(state *transport.RoomState, client transport.Client) *Room {
	if state == nil {
		return &Room{client: client}
	}
	return &Room{
		ID:      state.ID,
		Name:    state.Name,
		Topic:   state.Topic,
		Version: state.Version,
		Members: state.Members,
		client:  client,
	}
}

// SendText posts body to the room. A non-empty replyTo marks the message as a
// reply to that event.
func (r *Room) SendText(ctx context.Context, body, replyTo string) error {
	if r == nil || r.client == nil {
		return errNoClient
	}
	return r.client.SendText(ctx, r.ID, body, replyTo)
}

// Reply answers msg in this room.
func (r *Room) Reply(ctx context.Context, msg *Message, body string) error {
	replyTo := ""
	if msg != nil {
		replyTo = msg.EventID
	}
	return r.SendText(ctx, body, replyTo)
}

func (r *Room) String() string {
	return fmt.Sprintf("%s: %s", r.ID, r.Name)
}
