package runtime

import (
	"slices"

	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

// listenerInfo describes what a listener tag's events carry.
type listenerInfo struct {
	kind    transport.EventKind
	room    bool
	message bool
	event   bool
}

// listenerRegistry is fixed at process start and never written afterwards.
var listenerRegistry = map[handler.ListenerTag]listenerInfo{
	handler.OnText: {
		kind:    transport.KindRoomMessageText,
		room:    true,
		message: true,
		event:   true,
	},
	handler.OnMembershipChange: {
		kind:  transport.KindRoomMember,
		room:  true,
		event: true,
	},
	handler.OnReady: {
		kind: transport.KindSyncReady,
	},
}

// KindFor returns the transport event kind a listener tag subscribes to.
func KindFor(tag handler.ListenerTag) (transport.EventKind, bool) {
	caps, ok := listenerRegistry[tag]
	return caps.kind, ok
}

// KnownListeners returns every registered listener tag, sorted.
func KnownListeners() []handler.ListenerTag {
	tags := make([]handler.ListenerTag, 0, len(listenerRegistry))
	for tag := range listenerRegistry {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
