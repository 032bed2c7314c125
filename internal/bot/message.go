package bot

import (
	"strings"

	"github.com/neoclaw-ai/roombot/internal/match"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

// Message is a text message as seen by one handler invocation.
type Message struct {
	Body          string
	FormattedBody string
	EventID       string
	SenderID      string
	// Args is Body split on whitespace.
	Args []string
	// Event is the transport event the message was built from.
	Event *transport.TextEvent
}

// NewMessage builds a message projection. Each call returns fresh slices so
// projections handed to different handlers never share state.
func NewMessage(ev *transport.TextEvent) *Message {
	if ev == nil {
		return &Message{Args: []string{}}
	}
	args := strings.Fields(ev.Body)
	if args == nil {
		args = []string{}
	}
	return &Message{
		Body:          ev.Body,
		FormattedBody: ev.FormattedBody,
		EventID:       ev.ID,
		SenderID:      ev.Sender,
		Args:          args,
		Event:         ev,
	}
}

// Command matches the message against prefix and command case-sensitively.
func (m *Message) Command(prefix, command string) match.Result {
	if m == nil {
		return match.Result{}
	}
	return match.Match(m.Body, prefix, command)
}

// FromBot reports whether b sent this message.
func (m *Message) FromBot(b *Bot) bool {
	if m == nil || b == nil {
		return false
	}
	return b.UserID != "" && m.SenderID == b.UserID
}

func (m *Message) String() string {
	if m == nil {
		return ""
	}
	return m.Body
}
