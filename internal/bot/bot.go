// Package bot holds the read-only values handlers receive: the triggering
// message, the room it happened in, the bot façade, and the dependency bag.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neoclaw-ai/roombot/internal/match"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

var errNoClient = errors.New("bot client is not connected")

// Bot is the authenticated identity handlers act as.
type Bot struct {
	UserID string
	// Prefix is the command prefix in effect for the handler that received this Bot.
	Prefix string

	client transport.Client
}

// New creates a bot façade over a connected client.
func New(client transport.Client, prefix string) *Bot {
	b := &Bot{Prefix: prefix, client: client}
	if client != nil {
		b.UserID = client.UserID()
	}
	return b
}

// SendText posts a plain text message to a room.
func (b *Bot) SendText(ctx context.Context, roomID, body string) error {
	if b == nil || b.client == nil {
		return errNoClient
	}
	return b.client.SendText(ctx, roomID, body, "")
}

// JoinRoom joins the room with the given ID.
func (b *Bot) JoinRoom(ctx context.Context, roomID string) error {
	if b == nil || b.client == nil {
		return errNoClient
	}
	if strings.TrimSpace(roomID) == "" {
		return errors.New("room id is required")
	}
	return b.client.JoinRoom(ctx, roomID)
}

// Command matches msg against command using this bot's prefix.
func (b *Bot) Command(msg *Message, command string) match.Result {
	if b == nil || msg == nil {
		return match.Result{}
	}
	return match.Match(msg.Body, b.Prefix, command)
}

func (b *Bot) String() string {
	return fmt.Sprintf("%s (prefix %q)", b.UserID, b.Prefix)
}
