package channels

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/neoclaw-ai/roombot/internal/transport"
)

func TestCLISourceListenDeliversEvents(t *testing.T) {
	out := &bytes.Buffer{}
	source := NewCLI(strings.NewReader("hello\n\n/invite !lab:local\n"), out)
	rec := &eventRecorder{}
	registerAll(t, source, rec)

	if err := source.Listen(context.Background()); err != nil {
		t.Fatalf("listen: %v", err)
	}

	got := rec.snapshot()
	if len(got) != 3 {
		t.Fatalf("expected ready, text and invite events, got %d", len(got))
	}
	if _, ok := got[0].ev.(*transport.ReadyEvent); !ok {
		t.Fatalf("expected ready first, got %T", got[0].ev)
	}
	text, ok := got[1].ev.(*transport.TextEvent)
	if !ok || text.Body != "hello" || text.Sender != CLISenderID || !strings.HasPrefix(text.ID, "$") {
		t.Fatalf("unexpected text event %#v", got[1].ev)
	}
	if got[1].room.ID != CLIDefaultRoom {
		t.Fatalf("expected text in default room, got %q", got[1].room.ID)
	}
	invite, ok := got[2].ev.(*transport.MemberEvent)
	if !ok || invite.Membership != transport.MembershipInvite || invite.StateKey != CLIUserID {
		t.Fatalf("unexpected invite event %#v", got[2].ev)
	}
	if got[2].room.ID != "!lab:local" {
		t.Fatalf("expected invite for !lab:local, got %q", got[2].room.ID)
	}
}

func TestCLISourceListenStopsOnQuit(t *testing.T) {
	out := &bytes.Buffer{}
	source := NewCLI(strings.NewReader("/quit\nignored\n"), out)
	rec := &eventRecorder{}
	registerAll(t, source, rec)

	if err := source.Listen(context.Background()); err != nil {
		t.Fatalf("listen: %v", err)
	}
	for _, e := range rec.snapshot() {
		if _, ok := e.ev.(*transport.TextEvent); ok {
			t.Fatalf("expected no text after /quit, got %#v", e.ev)
		}
	}
}

func TestCLISourceInviteUsage(t *testing.T) {
	out := &bytes.Buffer{}
	source := NewCLI(strings.NewReader("/invite\n"), out)

	if err := source.Listen(context.Background()); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if !strings.Contains(out.String(), "usage: /invite <room>") {
		t.Fatalf("expected usage output, got %q", out.String())
	}
}

func TestCLISourceJoinRoomSwitchesCurrentRoom(t *testing.T) {
	out := &bytes.Buffer{}
	source := NewCLI(strings.NewReader(""), out)

	if err := source.JoinRoom(context.Background(), "!lab:local"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if !source.Joined("!lab:local") || source.currentRoom() != "!lab:local" {
		t.Fatalf("expected !lab:local to be joined and current")
	}
	if err := source.JoinRoom(context.Background(), " "); err == nil {
		t.Fatalf("expected empty room id to be rejected")
	}
	if !strings.Contains(out.String(), "joined !lab:local") {
		t.Fatalf("expected join output, got %q", out.String())
	}
}

func TestCLISourceSendText(t *testing.T) {
	out := &bytes.Buffer{}
	source := NewCLI(strings.NewReader(""), out)

	if err := source.SendText(context.Background(), "!lab", "pong", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := source.SendText(context.Background(), "!lab", "again", "$0123456789abcdef"); err != nil {
		t.Fatalf("send reply: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "[!lab] bot> pong\n") {
		t.Fatalf("expected plain send output, got %q", got)
	}
	if !strings.Contains(got, "[!lab] bot (re $01234567)> again\n") {
		t.Fatalf("expected reply output, got %q", got)
	}
}
