package handler

// ListenerTag names an event kind a handler subscribes to.
type ListenerTag string

const (
	// OnText fires for every text message in a room the bot is in.
	OnText ListenerTag = "on_text"
	// OnMembershipChange fires when someone is invited, joins, leaves or is banned.
	OnMembershipChange ListenerTag = "on_membership_change"
	// OnReady fires once the client is connected.
	OnReady ListenerTag = "on_ready"
)

// MiddlewareTag names a transform applied to a descriptor before dispatch.
type MiddlewareTag string

const (
	// PrefixFilter restricts a text handler to messages starting with its prefix.
	PrefixFilter MiddlewareTag = "prefix_filter"
)

// Middleware is one middleware step together with its argument.
type Middleware struct {
	Tag MiddlewareTag
	// Prefix is the PrefixFilter argument. Empty keeps whatever prefix was set before.
	Prefix string
}

// WithPrefix returns a PrefixFilter step. An empty prefix defers to the
// dispatcher's default prefix.
func WithPrefix(prefix string) Middleware {
	return Middleware{Tag: PrefixFilter, Prefix: prefix}
}

// Tag is anything Compose can attach to a descriptor: a ListenerTag or a Middleware.
type Tag interface {
	applyTo(d *Descriptor)
}

func (l ListenerTag) applyTo(d *Descriptor) {
	for _, existing := range d.listeners {
		if existing == l {
			return
		}
	}
	d.listeners = append(d.listeners, l)
}

func (m Middleware) applyTo(d *Descriptor) {
	d.middleware = append(d.middleware, m)
	if m.Tag == PrefixFilter && m.Prefix != "" {
		d.prefix = m.Prefix
		d.hasPrefix = true
	}
}
