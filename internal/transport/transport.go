// Package transport defines the events a chat protocol client delivers and the
// callback registration surface the dispatcher consumes.
package transport

import (
	"context"
	"errors"
)

// EventKind identifies one transport-level event type.
type EventKind string

const (
	// KindRoomMessageText is a plain text message posted in a room.
	KindRoomMessageText EventKind = "m.room.message.text"
	// KindRoomMember is a membership change (invite, join, leave) in a room.
	KindRoomMember EventKind = "m.room.member"
	// KindSyncReady fires once after the client has connected.
	KindSyncReady EventKind = "sync.ready"
)

// Membership values carried by MemberEvent.
const (
	MembershipInvite = "invite"
	MembershipJoin   = "join"
	MembershipLeave  = "leave"
	MembershipBan    = "ban"
)

// ErrJoinUnsupported is returned by clients whose protocol has no explicit join.
var ErrJoinUnsupported = errors.New("joining rooms is not supported by this transport")

// Event is one delivered transport event.
type Event interface {
	Kind() EventKind
}

// RoomState is the transport's view of the room an event happened in.
type RoomState struct {
	ID      string
	Name    string
	Topic   string
	Version string
	Members int
}

// TextEvent is a text message.
type TextEvent struct {
	ID            string
	Sender        string
	Body          string
	FormattedBody string
	// Source is the protocol payload the event was decoded from.
	Source any
}

// Kind implements Event.
func (*TextEvent) Kind() EventKind { return KindRoomMessageText }

// MemberEvent is a membership change. StateKey is the user whose membership changed.
type MemberEvent struct {
	ID         string
	Sender     string
	StateKey   string
	Membership string
	Source     any
}

// Kind implements Event.
func (*MemberEvent) Kind() EventKind { return KindRoomMember }

// ReadyEvent marks a completed connection.
type ReadyEvent struct {
	UserID string
}

// Kind implements Event.
func (*ReadyEvent) Kind() EventKind { return KindSyncReady }

// Callback receives one event. room is nil for events not tied to a room.
type Callback func(ctx context.Context, room *RoomState, ev Event)

// EventSource accepts per-kind callback registrations.
type EventSource interface {
	RegisterCallback(kind EventKind, cb Callback) error
}

// Client performs outgoing actions on behalf of the authenticated account.
type Client interface {
	UserID() string
	SendText(ctx context.Context, roomID, body, replyTo string) error
	JoinRoom(ctx context.Context, roomID string) error
}

// Conn is what the dispatcher needs from a chat client.
type Conn interface {
	EventSource
	Client
}

// Source is a chat client that delivers events until ctx is canceled.
type Source interface {
	Conn
	Listen(ctx context.Context) error
}
