package runtime

import (
	"fmt"

	"github.com/neoclaw-ai/roombot/internal/handler"
)

// ConfigurationError rejects a descriptor before any callback is registered.
type ConfigurationError struct {
	Handler string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("handler %q: %s", e.Handler, e.Reason)
}

// UnresolvedParameterError reports a declared parameter that cannot be
// produced for the listener that fired.
type UnresolvedParameterError struct {
	Handler  string
	Param    string
	Cap      handler.Capability
	Listener handler.ListenerTag
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("handler %q: cannot resolve %s parameter %q for listener %s", e.Handler, e.Cap, e.Param, e.Listener)
}

// HandlerInvocationError wraps an error returned or a panic raised by user code.
type HandlerInvocationError struct {
	Handler  string
	Listener handler.ListenerTag
	Err      error
	// Panic holds the recovered value when the handler panicked.
	Panic any
}

func (e *HandlerInvocationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler %q on %s panicked: %v", e.Handler, e.Listener, e.Panic)
	}
	return fmt.Sprintf("handler %q on %s: %v", e.Handler, e.Listener, e.Err)
}

func (e *HandlerInvocationError) Unwrap() error {
	return e.Err
}
