package handler

import (
	"fmt"
	"slices"

	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

// Capability is what a declared parameter asks to be filled with.
type Capability int

const (
	// CapMessage is the triggering text message.
	CapMessage Capability = iota + 1
	// CapRoom is the room the event happened in.
	CapRoom
	// CapBot is the bot façade.
	CapBot
	// CapEvent is the untyped transport event, passed through unchanged.
	CapEvent
	// CapDependency is a named value from the dependency bag.
	CapDependency
)

func (c Capability) String() string {
	switch c {
	case CapMessage:
		return "message"
	case CapRoom:
		return "room"
	case CapBot:
		return "bot"
	case CapEvent:
		return "event"
	case CapDependency:
		return "dependency"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// Param is one declared parameter.
type Param struct {
	Name string
	Cap  Capability
	// Key is the dependency bag key for CapDependency. Defaults to Name.
	Key string
}

// MessageParam declares a parameter filled with the triggering message.
func MessageParam(name string) Param { return Param{Name: name, Cap: CapMessage} }

// RoomParam declares a parameter filled with the event's room.
func RoomParam(name string) Param { return Param{Name: name, Cap: CapRoom} }

// BotParam declares a parameter filled with the bot façade.
func BotParam(name string) Param { return Param{Name: name, Cap: CapBot} }

// EventParam declares a parameter filled with the raw transport event.
func EventParam(name string) Param { return Param{Name: name, Cap: CapEvent} }

// DependencyParam declares a parameter filled from the dependency bag under key.
func DependencyParam(name, key string) Param {
	return Param{Name: name, Cap: CapDependency, Key: key}
}

// DependencyKey returns the bag key a dependency parameter reads.
func (p Param) DependencyKey() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Name
}

// DependencyValue is a dependency lookup result. Found is false for keys
// missing from the bag.
type DependencyValue struct {
	Value any
	Found bool
}

// Binding maps parameter names to values resolved for one invocation.
type Binding struct {
	values map[string]any
}

// NewBinding wraps values. The map is owned by the binding afterwards.
func NewBinding(values map[string]any) Binding {
	if values == nil {
		values = map[string]any{}
	}
	return Binding{values: values}
}

// Len returns the number of bound parameters.
func (b Binding) Len() int {
	return len(b.values)
}

// Names returns the bound parameter names, sorted.
func (b Binding) Names() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Value returns the raw bound value.
func (b Binding) Value(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Message returns the message bound to name, or nil.
func (b Binding) Message(name string) *bot.Message {
	v, _ := b.values[name].(*bot.Message)
	return v
}

// Room returns the room bound to name, or nil.
func (b Binding) Room(name string) *bot.Room {
	v, _ := b.values[name].(*bot.Room)
	return v
}

// Bot returns the bot façade bound to name, or nil.
func (b Binding) Bot(name string) *bot.Bot {
	v, _ := b.values[name].(*bot.Bot)
	return v
}

// Event returns the raw event bound to name, or nil.
func (b Binding) Event(name string) transport.Event {
	v, _ := b.values[name].(transport.Event)
	return v
}

// Dependency returns the dependency bound to name. ok is false when the bag
// had no value for the parameter's key.
func (b Binding) Dependency(name string) (value any, ok bool) {
	v, isDep := b.values[name].(DependencyValue)
	if !isDep {
		return nil, false
	}
	return v.Value, v.Found
}
