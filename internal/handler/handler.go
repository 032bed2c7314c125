// Package handler builds dispatch-ready descriptors from user functions,
// listener tags and middleware.
package handler

import (
	"context"
	"slices"
)

// Func is the user code a descriptor runs. args holds one freshly resolved
// value per declared parameter.
type Func func(ctx context.Context, args Binding) error

// Callable is a user function together with the parameters it declares.
type Callable struct {
	Name   string
	Params []Param
	Fn     Func
}

// NewCallable declares fn with the given parameters.
func NewCallable(name string, fn Func, params ...Param) *Callable {
	return &Callable{Name: name, Params: params, Fn: fn}
}

// Base is what Compose extends: a *Callable or an existing Descriptor.
type Base interface {
	descriptor() Descriptor
}

func (c *Callable) descriptor() Descriptor {
	return Descriptor{callable: c}
}

// Descriptor is a composed handler. Values are immutable; composing returns a
// new Descriptor carrying the union of all attached tags.
type Descriptor struct {
	callable   *Callable
	listeners  []ListenerTag
	middleware []Middleware
	prefix     string
	hasPrefix  bool
}

func (d Descriptor) descriptor() Descriptor {
	return d
}

// Compose extends base with tags. Listener tags already present are not
// added twice; middleware is appended in order.
func Compose(base Base, tags ...Tag) Descriptor {
	var src Descriptor
	if base != nil {
		src = base.descriptor()
	}
	d := Descriptor{
		callable:   src.callable,
		listeners:  slices.Clone(src.listeners),
		middleware: slices.Clone(src.middleware),
		prefix:     src.prefix,
		hasPrefix:  src.hasPrefix,
	}
	for _, tag := range tags {
		if tag != nil {
			tag.applyTo(&d)
		}
	}
	return d
}

// On attaches listener tags to base.
func On(base Base, listeners ...ListenerTag) Descriptor {
	tags := make([]Tag, 0, len(listeners))
	for _, l := range listeners {
		tags = append(tags, l)
	}
	return Compose(base, tags...)
}

// Use attaches middleware to base.
func Use(base Base, middleware ...Middleware) Descriptor {
	tags := make([]Tag, 0, len(middleware))
	for _, m := range middleware {
		tags = append(tags, m)
	}
	return Compose(base, tags...)
}

// Callable returns the wrapped user function.
func (d Descriptor) Callable() *Callable {
	return d.callable
}

// Name returns the callable's name, or "" when unset.
func (d Descriptor) Name() string {
	if d.callable == nil {
		return ""
	}
	return d.callable.Name
}

// Listeners returns the listener tags in insertion order.
func (d Descriptor) Listeners() []ListenerTag {
	return slices.Clone(d.listeners)
}

// Middleware returns the middleware steps in application order.
func (d Descriptor) Middleware() []Middleware {
	return slices.Clone(d.middleware)
}

// Listens reports whether d subscribes to tag.
func (d Descriptor) Listens(tag ListenerTag) bool {
	return slices.Contains(d.listeners, tag)
}

// Uses reports whether any middleware step has the given tag.
func (d Descriptor) Uses(tag MiddlewareTag) bool {
	for _, m := range d.middleware {
		if m.Tag == tag {
			return true
		}
	}
	return false
}

// Prefix returns the prefix set by middleware. ok is false when no
// middleware supplied one.
func (d Descriptor) Prefix() (prefix string, ok bool) {
	return d.prefix, d.hasPrefix
}

// EffectivePrefix returns the descriptor prefix, falling back to def.
func (d Descriptor) EffectivePrefix(def string) string {
	if d.hasPrefix {
		return d.prefix
	}
	return def
}
