package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/match"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

// Observer is notified about dispatch activity. Implementations must be safe
// for concurrent use.
type Observer interface {
	EventDispatched(listener handler.ListenerTag)
	HandlerSkipped(listener handler.ListenerTag, name string, reason string)
	HandlerFinished(listener handler.ListenerTag, name string, elapsed time.Duration, err error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver reports dispatch activity to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// WithSerialHandlers runs handlers for one event one after another on the
// delivering goroutine instead of handing each off to its own goroutine.
func WithSerialHandlers() Option {
	return func(d *Dispatcher) {
		d.serial = true
	}
}

// Dispatcher fans each delivered event out to every descriptor listening on
// its tag. It owns exactly one transport callback per tag in use.
type Dispatcher struct {
	client        transport.Client
	deps          *bot.Deps
	defaultPrefix string
	observer      Observer
	serial        bool

	entries    []entry
	byListener map[handler.ListenerTag][]int
	registered []handler.ListenerTag

	inflight sync.WaitGroup
}

type entry struct {
	desc   handler.Descriptor
	name   string
	prefix string
	filter bool
}

// Setup validates handlers, then registers one callback per distinct listener
// tag with conn. Validation failures are returned as *ConfigurationError
// values (joined) and no callback is registered.
func Setup(conn transport.Conn, handlers []handler.Descriptor, deps *bot.Deps, defaultPrefix string, opts ...Option) (*Dispatcher, error) {
	if conn == nil {
		return nil, errors.New("event source is required")
	}

	d := &Dispatcher{
		client:        conn,
		deps:          deps,
		defaultPrefix: defaultPrefix,
		byListener:    make(map[handler.ListenerTag][]int),
	}
	for _, opt := range opts {
		opt(d)
	}

	var errs []error
	for i, desc := range handlers {
		e, err := newEntry(i, desc, defaultPrefix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		d.entries = append(d.entries, e)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for i, e := range d.entries {
		for _, tag := range e.desc.Listeners() {
			if _, seen := d.byListener[tag]; !seen {
				d.registered = append(d.registered, tag)
			}
			d.byListener[tag] = append(d.byListener[tag], i)
		}
	}

	for _, tag := range d.registered {
		kind, _ := KindFor(tag)
		if err := conn.RegisterCallback(kind, d.callback(tag)); err != nil {
			return nil, fmt.Errorf("register %s callback: %w", tag, err)
		}
		logging.Logger().Debug(
			"registered transport callback",
			"listener", tag,
			"kind", kind,
			"handlers", len(d.byListener[tag]),
		)
	}
	return d, nil
}

func newEntry(index int, desc handler.Descriptor, defaultPrefix string) (entry, error) {
	name := desc.Name()
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("handler[%d]", index)
	}
	fail := func(reason string) (entry, error) {
		return entry{}, &ConfigurationError{Handler: name, Reason: reason}
	}

	callable := desc.Callable()
	if callable == nil || callable.Fn == nil {
		return fail("no function to call")
	}
	listeners := desc.Listeners()
	if len(listeners) == 0 {
		return fail("no listener tags")
	}
	for _, tag := range listeners {
		if _, ok := KindFor(tag); !ok {
			return fail(fmt.Sprintf("unknown listener tag %q", tag))
		}
	}
	seen := make(map[string]struct{}, len(callable.Params))
	for _, p := range callable.Params {
		if strings.TrimSpace(p.Name) == "" {
			return fail("parameter without a name")
		}
		if _, dup := seen[p.Name]; dup {
			return fail(fmt.Sprintf("duplicate parameter %q", p.Name))
		}
		seen[p.Name] = struct{}{}
	}

	e := entry{
		desc:   desc,
		name:   name,
		prefix: desc.EffectivePrefix(defaultPrefix),
		filter: desc.Uses(handler.PrefixFilter),
	}
	if e.filter {
		if e.prefix == "" {
			return fail("prefix filter without a prefix and no default prefix configured")
		}
		if strings.IndexFunc(e.prefix, unicode.IsSpace) >= 0 {
			return fail(fmt.Sprintf("prefix %q contains whitespace", e.prefix))
		}
	}
	return e, nil
}

// Registered returns the listener tags a transport callback was registered
// for, in registration order.
func (d *Dispatcher) Registered() []handler.ListenerTag {
	out := make([]handler.ListenerTag, len(d.registered))
	copy(out, d.registered)
	return out
}

// Wait blocks until every handed-off handler invocation has returned or ctx
// is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return errors.New("dispatcher is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) callback(tag handler.ListenerTag) transport.Callback {
	return func(ctx context.Context, room *transport.RoomState, ev transport.Event) {
		d.dispatch(ctx, tag, room, ev)
	}
}

// dispatch resolves every interested handler in registration order and hands
// each invocation off before returning.
func (d *Dispatcher) dispatch(ctx context.Context, tag handler.ListenerTag, room *transport.RoomState, ev transport.Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d.observer != nil {
		d.observer.EventDispatched(tag)
	}
	// Handlers may outlive the delivery context during shutdown.
	runCtx := context.WithoutCancel(ctx)

	for _, idx := range d.byListener[tag] {
		e := d.entries[idx]
		if e.filter && !prefixMatches(e.prefix, ev) {
			if d.observer != nil {
				d.observer.HandlerSkipped(tag, e.name, "prefix")
			}
			continue
		}

		binding, err := Resolve(e.desc, EventContext{
			Listener: tag,
			Room:     room,
			Event:    ev,
			Client:   d.client,
			Deps:     d.deps,
			Prefix:   e.prefix,
		})
		if err != nil {
			logging.Logger().Error("handler parameters unresolved", "handler", e.name, "listener", tag, "err", err)
			if d.observer != nil {
				d.observer.HandlerSkipped(tag, e.name, "unresolved")
			}
			continue
		}

		if d.serial {
			d.invoke(runCtx, tag, e, binding)
			continue
		}
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			d.invoke(runCtx, tag, e, binding)
		}()
	}
}

func (d *Dispatcher) invoke(ctx context.Context, tag handler.ListenerTag, e entry, binding handler.Binding) {
	start := time.Now()
	err := call(ctx, tag, e, binding)
	elapsed := time.Since(start)

	if err != nil {
		var invErr *HandlerInvocationError
		if errors.As(err, &invErr) && invErr.Panic != nil {
			logging.Logger().Error("handler panicked", "handler", e.name, "listener", tag, "panic", invErr.Panic)
		} else if !errors.Is(err, context.Canceled) {
			logging.Logger().Error("handler failed", "handler", e.name, "listener", tag, "err", err)
		}
	}
	if d.observer != nil {
		d.observer.HandlerFinished(tag, e.name, elapsed, err)
	}
}

func call(ctx context.Context, tag handler.ListenerTag, e entry, binding handler.Binding) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Debug("handler panic stack", "handler", e.name, "stack", string(debug.Stack()))
			err = &HandlerInvocationError{Handler: e.name, Listener: tag, Panic: r}
		}
	}()
	if callErr := e.desc.Callable().Fn(ctx, binding); callErr != nil {
		return &HandlerInvocationError{Handler: e.name, Listener: tag, Err: callErr}
	}
	return nil
}

func prefixMatches(prefix string, ev transport.Event) bool {
	text, ok := ev.(*transport.TextEvent)
	if !ok {
		return true
	}
	return text != nil && match.HasPrefix(text.Body, prefix)
}
