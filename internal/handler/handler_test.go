package handler

import (
	"context"
	"reflect"
	"testing"

	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

func noop(context.Context, Binding) error { return nil }

func TestComposeFromCallable(t *testing.T) {
	fn := NewCallable("echo", noop, MessageParam("message"))

	d := Compose(fn, OnText)
	if d.Callable() != fn {
		t.Fatalf("expected callable identity to be preserved")
	}
	if d.Name() != "echo" {
		t.Fatalf("expected name echo, got %q", d.Name())
	}
	if !reflect.DeepEqual(d.Listeners(), []ListenerTag{OnText}) {
		t.Fatalf("unexpected listeners: %#v", d.Listeners())
	}
	if len(d.Middleware()) != 0 {
		t.Fatalf("expected no middleware, got %#v", d.Middleware())
	}

	bare := Compose(fn)
	if len(bare.Listeners()) != 0 {
		t.Fatalf("expected raw callable to start with no listeners")
	}
}

func TestComposeAccumulatesAcrossRecomposition(t *testing.T) {
	fn := NewCallable("multi", noop)

	first := On(fn, OnText)
	second := Use(first, WithPrefix("!"))
	third := On(second, OnMembershipChange)
	fourth := Compose(third, OnReady, WithPrefix(""))

	if fourth.Callable() != fn {
		t.Fatalf("expected callable identity through recomposition")
	}
	wantListeners := []ListenerTag{OnText, OnMembershipChange, OnReady}
	if !reflect.DeepEqual(fourth.Listeners(), wantListeners) {
		t.Fatalf("expected listeners %#v, got %#v", wantListeners, fourth.Listeners())
	}
	if got := len(fourth.Middleware()); got != 2 {
		t.Fatalf("expected 2 middleware steps, got %d", got)
	}
	prefix, ok := fourth.Prefix()
	if !ok || prefix != "!" {
		t.Fatalf("expected empty PrefixFilter to keep earlier prefix, got %q (ok=%v)", prefix, ok)
	}

	// Earlier values are not mutated by later composition.
	if len(first.Listeners()) != 1 || len(first.Middleware()) != 0 {
		t.Fatalf("expected first descriptor unchanged, got %#v %#v", first.Listeners(), first.Middleware())
	}
}

func TestComposeIsIdempotentForListeners(t *testing.T) {
	fn := NewCallable("dup", noop)
	d := On(On(On(fn, OnText), OnText), OnText, OnText)
	if !reflect.DeepEqual(d.Listeners(), []ListenerTag{OnText}) {
		t.Fatalf("expected duplicate listeners to collapse, got %#v", d.Listeners())
	}
}

func TestComposeOrderIndependentSets(t *testing.T) {
	fn := NewCallable("ordered", noop)

	middlewareFirst := On(Use(fn, WithPrefix("!")), OnText)
	listenerFirst := Use(On(fn, OnText), WithPrefix("!"))

	if !sameListeners(middlewareFirst.Listeners(), listenerFirst.Listeners()) {
		t.Fatalf("listener sets differ: %#v vs %#v", middlewareFirst.Listeners(), listenerFirst.Listeners())
	}
	if !reflect.DeepEqual(middlewareFirst.Middleware(), listenerFirst.Middleware()) {
		t.Fatalf("middleware differs: %#v vs %#v", middlewareFirst.Middleware(), listenerFirst.Middleware())
	}
	p1, _ := middlewareFirst.Prefix()
	p2, _ := listenerFirst.Prefix()
	if p1 != p2 {
		t.Fatalf("prefix differs: %q vs %q", p1, p2)
	}
}

func TestLastNonEmptyPrefixWins(t *testing.T) {
	fn := NewCallable("prefixed", noop)
	d := Use(fn, WithPrefix("!"), WithPrefix("?"), WithPrefix(""))

	prefix, ok := d.Prefix()
	if !ok || prefix != "?" {
		t.Fatalf("expected prefix ?, got %q (ok=%v)", prefix, ok)
	}
	if d.EffectivePrefix("#") != "?" {
		t.Fatalf("expected descriptor prefix to override default")
	}
	if !d.Uses(PrefixFilter) {
		t.Fatalf("expected PrefixFilter to be recorded")
	}

	unset := Use(fn, WithPrefix(""))
	if _, ok := unset.Prefix(); ok {
		t.Fatalf("expected empty PrefixFilter to leave prefix unset")
	}
	if unset.EffectivePrefix("#") != "#" {
		t.Fatalf("expected default prefix fallback")
	}
}

func TestListenersAccessorReturnsCopy(t *testing.T) {
	d := On(NewCallable("copy", noop), OnText)
	listeners := d.Listeners()
	listeners[0] = OnReady
	if !d.Listens(OnText) || d.Listens(OnReady) {
		t.Fatalf("expected descriptor listeners to be unaffected by caller mutation")
	}
}

func TestBindingAccessors(t *testing.T) {
	msg := bot.NewMessage(&transport.TextEvent{Body: "hi"})
	room := bot.NewRoom(&transport.RoomState{ID: "!r"}, nil)
	b := bot.New(nil, "!")
	ev := &transport.MemberEvent{Membership: transport.MembershipJoin}

	binding := NewBinding(map[string]any{
		"message": msg,
		"room":    room,
		"bot":     b,
		"event":   ev,
		"db":      DependencyValue{Value: 42, Found: true},
		"cache":   DependencyValue{},
	})

	if binding.Message("message") != msg || binding.Room("room") != room || binding.Bot("bot") != b {
		t.Fatalf("unexpected typed accessors")
	}
	if binding.Event("event") != ev {
		t.Fatalf("expected raw event passthrough")
	}
	if v, ok := binding.Dependency("db"); !ok || v != 42 {
		t.Fatalf("expected dependency 42, got %v (ok=%v)", v, ok)
	}
	if _, ok := binding.Dependency("cache"); ok {
		t.Fatalf("expected absent dependency")
	}
	if binding.Message("room") != nil {
		t.Fatalf("expected nil for mismatched type")
	}
	if binding.Len() != 6 {
		t.Fatalf("expected 6 values, got %d", binding.Len())
	}
	if !reflect.DeepEqual(binding.Names(), []string{"bot", "cache", "db", "event", "message", "room"}) {
		t.Fatalf("unexpected names: %#v", binding.Names())
	}
}

func TestCapabilityString(t *testing.T) {
	if CapMessage.String() != "message" || CapDependency.String() != "dependency" {
		t.Fatalf("unexpected capability names")
	}
	if Capability(99).String() != "capability(99)" {
		t.Fatalf("unexpected unknown capability name %q", Capability(99).String())
	}
	if DependencyParam("store", "").DependencyKey() != "store" {
		t.Fatalf("expected key to default to parameter name")
	}
	if DependencyParam("store", "kv").DependencyKey() != "kv" {
		t.Fatalf("expected explicit key")
	}
}

func sameListeners(a, b []ListenerTag) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[ListenerTag]int)
	for _, l := range a {
		seen[l]++
	}
	for _, l := range b {
		seen[l]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
