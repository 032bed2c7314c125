package commands

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

type sentText struct {
	roomID  string
	body    string
	replyTo string
}

type fakeClient struct {
	mu   sync.Mutex
	sent []sentText
}

func (c *fakeClient) UserID() string { return "@bot:local" }

func (c *fakeClient) SendText(_ context.Context, roomID, body, replyTo string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentText{roomID: roomID, body: body, replyTo: replyTo})
	return nil
}

func (c *fakeClient) JoinRoom(context.Context, string) error { return nil }

func runText(t *testing.T, d handler.Descriptor, client *fakeClient, sender, body string) {
	t.Helper()
	ev := &transport.TextEvent{ID: "$ev", Sender: sender, Body: body}
	args := handler.NewBinding(map[string]any{
		"message": bot.NewMessage(ev),
		"room":    bot.NewRoom(&transport.RoomState{ID: "!r"}, client),
		"bot":     bot.New(client, "!"),
	})
	if err := d.Callable().Fn(context.Background(), args); err != nil {
		t.Fatalf("%s: %v", d.Name(), err)
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name   string
		desc   handler.Descriptor
		sender string
		body   string
		want   []sentText
	}{
		{
			name: "help lists commands with prefix",
			desc: Help(), sender: "@u:local", body: "!help",
			want: []sentText{{roomID: "!r", body: "Commands: !help, !ping, !echo, !reply"}},
		},
		{
			name: "ping replies",
			desc: Ping(), sender: "@u:local", body: "!ping",
			want: []sentText{{roomID: "!r", body: "pong", replyTo: "$ev"}},
		},
		{
			name: "ping ignores longer word",
			desc: Ping(), sender: "@u:local", body: "!pingpong",
		},
		{
			name: "command is case-sensitive",
			desc: Ping(), sender: "@u:local", body: "!Ping",
		},
		{
			name: "reply joins args",
			desc: Reply(), sender: "@u:local", body: "!reply something   else",
			want: []sentText{{roomID: "!r", body: "something else", replyTo: "$ev"}},
		},
		{
			name: "reply without args is silent",
			desc: Reply(), sender: "@u:local", body: "!reply",
		},
		{
			name: "echo keeps quoted args",
			desc: Echo(), sender: "@u:local", body: `!echo "hello  world" again`,
			want: []sentText{{roomID: "!r", body: "hello  world again"}},
		},
		{
			name: "own messages are ignored",
			desc: Ping(), sender: "@bot:local", body: "!ping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			runText(t, tt.desc, client, tt.sender, tt.body)
			if len(client.sent) != len(tt.want) {
				t.Fatalf("expected %d sends, got %#v", len(tt.want), client.sent)
			}
			for i := range tt.want {
				if client.sent[i] != tt.want[i] {
					t.Fatalf("send %d: expected %#v, got %#v", i, tt.want[i], client.sent[i])
				}
			}
		})
	}
}

func TestEchoReportsUnbalancedQuotes(t *testing.T) {
	client := &fakeClient{}
	runText(t, Echo(), client, "@u:local", `!echo "open`)
	if len(client.sent) != 1 {
		t.Fatalf("expected one reply, got %#v", client.sent)
	}
	got := client.sent[0]
	if !strings.HasPrefix(got.body, "cannot parse arguments: ") || got.replyTo != "$ev" {
		t.Fatalf("unexpected reply %#v", got)
	}
}

func TestWelcome(t *testing.T) {
	client := &fakeClient{}
	d := Welcome()
	b := bot.New(client, "!")
	room := bot.NewRoom(&transport.RoomState{ID: "!r"}, client)

	for _, ev := range []*transport.MemberEvent{
		{StateKey: "@alice:local", Membership: transport.MembershipJoin},
		{StateKey: "@bot:local", Membership: transport.MembershipJoin},
		{StateKey: "@bob:local", Membership: transport.MembershipLeave},
	} {
		args := handler.NewBinding(map[string]any{"event": ev, "room": room, "bot": b})
		if err := d.Callable().Fn(context.Background(), args); err != nil {
			t.Fatalf("welcome: %v", err)
		}
	}
	if len(client.sent) != 1 || client.sent[0].body != "Welcome, @alice:local!" {
		t.Fatalf("expected one greeting for alice, got %#v", client.sent)
	}
}

func TestBuiltinsShape(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Builtins() {
		if seen[d.Name()] {
			t.Fatalf("duplicate builtin %q", d.Name())
		}
		seen[d.Name()] = true
		if d.Name() == "welcome" {
			if !d.Listens(handler.OnMembershipChange) || d.Uses(handler.PrefixFilter) {
				t.Fatalf("unexpected welcome descriptor")
			}
			continue
		}
		if !d.Listens(handler.OnText) || !d.Uses(handler.PrefixFilter) {
			t.Fatalf("expected %q to be a prefixed text command", d.Name())
		}
		if _, ok := d.Prefix(); ok {
			t.Fatalf("expected %q to defer to the default prefix", d.Name())
		}
	}
}
