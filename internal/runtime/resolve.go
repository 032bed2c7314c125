package runtime

import (
	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

// EventContext is everything resolution may draw on for one delivered event.
type EventContext struct {
	Listener handler.ListenerTag
	Room     *transport.RoomState
	Event    transport.Event
	Client   transport.Client
	Deps     *bot.Deps
	// Prefix is the effective command prefix for the handler being resolved.
	Prefix string
}

type resolverFunc func(p handler.Param, ec EventContext, caps listenerInfo) (any, bool)

var resolvers = map[handler.Capability]resolverFunc{
	handler.CapMessage:    resolveMessage,
	handler.CapRoom:       resolveRoom,
	handler.CapBot:        resolveBot,
	handler.CapEvent:      resolveEvent,
	handler.CapDependency: resolveDependency,
}

// Resolve builds a fresh binding for every parameter d declares. Nothing is
// cached; each call allocates new projections.
func Resolve(d handler.Descriptor, ec EventContext) (handler.Binding, error) {
	callable := d.Callable()
	if callable == nil {
		return handler.NewBinding(nil), nil
	}

	caps := listenerRegistry[ec.Listener]
	values := make(map[string]any, len(callable.Params))
	for _, p := range callable.Params {
		resolve, known := resolvers[p.Cap]
		if !known {
			return handler.Binding{}, unresolved(d, p, ec.Listener)
		}
		v, ok := resolve(p, ec, caps)
		if !ok {
			return handler.Binding{}, unresolved(d, p, ec.Listener)
		}
		values[p.Name] = v
	}
	return handler.NewBinding(values), nil
}

func unresolved(d handler.Descriptor, p handler.Param, listener handler.ListenerTag) error {
	return &UnresolvedParameterError{
		Handler:  d.Name(),
		Param:    p.Name,
		Cap:      p.Cap,
		Listener: listener,
	}
}

func resolveMessage(_ handler.Param, ec EventContext, caps listenerInfo) (any, bool) {
	if !caps.message {
		return nil, false
	}
	ev, ok := ec.Event.(*transport.TextEvent)
	if !ok || ev == nil {
		return nil, false
	}
	return bot.NewMessage(ev), true
}

func resolveRoom(_ handler.Param, ec EventContext, caps listenerInfo) (any, bool) {
	if !caps.room || ec.Room == nil {
		return nil, false
	}
	return bot.NewRoom(ec.Room, ec.Client), true
}

func resolveBot(_ handler.Param, ec EventContext, _ listenerInfo) (any, bool) {
	return bot.New(ec.Client, ec.Prefix), true
}

func resolveEvent(_ handler.Param, ec EventContext, caps listenerInfo) (any, bool) {
	if !caps.event || ec.Event == nil {
		return nil, false
	}
	return ec.Event, true
}

func resolveDependency(p handler.Param, ec EventContext, _ listenerInfo) (any, bool) {
	v, found := ec.Deps.Get(p.DependencyKey())
	return handler.DependencyValue{Value: v, Found: found}, true
}
