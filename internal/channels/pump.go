// Package channels provides transport.Source implementations for each
// supported chat channel (Telegram and the local CLI).
package channels

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

const defaultPumpQueue = 64

// Pump delivers queued events to registered callbacks from a single loop, in
// the order they were enqueued.
type Pump struct {
	queue chan delivery
	done  chan struct{}

	stateMu   sync.Mutex
	started   bool
	rootCtx   context.Context
	pending   int
	callbacks map[transport.EventKind][]transport.Callback
}

type delivery struct {
	room *transport.RoomState
	ev   transport.Event
}

// NewPump creates a pump with a fixed-size queue.
func NewPump(queueSize int) *Pump {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pump{
		queue:     make(chan delivery, queueSize),
		done:      make(chan struct{}),
		callbacks: make(map[transport.EventKind][]transport.Callback),
	}
}

// RegisterCallback implements transport.EventSource.
func (p *Pump) RegisterCallback(kind transport.EventKind, cb transport.Callback) error {
	if cb == nil {
		return errors.New("callback is required")
	}
	if kind == "" {
		return errors.New("event kind is required")
	}
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.callbacks[kind] = append(p.callbacks[kind], cb)
	return nil
}

// Start begins the delivery loop.
func (p *Pump) Start(ctx context.Context) error {
	if p == nil {
		return errors.New("pump is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.stateMu.Lock()
	if p.started {
		p.stateMu.Unlock()
		return errors.New("pump already started")
	}
	p.started = true
	p.rootCtx = ctx
	p.stateMu.Unlock()

	go p.run(ctx)
	return nil
}

// Enqueue submits one event for FIFO delivery.
func (p *Pump) Enqueue(ctx context.Context, room *transport.RoomState, ev transport.Event) error {
	if ev == nil {
		return errors.New("event is required")
	}
	rootCtx, started := p.deliveryContext()
	if !started {
		return errors.New("pump is not started")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.addPending(1)
	select {
	case <-rootCtx.Done():
		p.addPending(-1)
		return rootCtx.Err()
	case <-ctx.Done():
		p.addPending(-1)
		return ctx.Err()
	case p.queue <- delivery{room: room, ev: ev}:
		return nil
	}
}

// Stop drops all queued events that have not been delivered yet.
func (p *Pump) Stop() {
	for {
		select {
		case <-p.queue:
			p.addPending(-1)
		default:
			return
		}
	}
}

// WaitUntilIdle blocks until every enqueued event has been delivered.
func (p *Pump) WaitUntilIdle(ctx context.Context) error {
	if p == nil {
		return errors.New("pump is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if p.isIdle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Wait blocks until the delivery loop exits.
func (p *Pump) Wait() {
	if p == nil {
		return
	}
	<-p.done
}

func (p *Pump) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-p.queue:
			p.deliver(ctx, item)
			p.addPending(-1)
		}
	}
}

func (p *Pump) deliver(ctx context.Context, item delivery) {
	kind := item.ev.Kind()
	p.stateMu.Lock()
	cbs := append([]transport.Callback(nil), p.callbacks[kind]...)
	p.stateMu.Unlock()

	if len(cbs) == 0 {
		logging.Logger().Debug("no callback for event", "kind", kind)
		return
	}
	for _, cb := range cbs {
		cb(ctx, item.room, item.ev)
	}
}

func (p *Pump) deliveryContext() (context.Context, bool) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.rootCtx, p.started
}

func (p *Pump) addPending(n int) {
	p.stateMu.Lock()
	p.pending += n
	p.stateMu.Unlock()
}

func (p *Pump) isIdle() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if !p.started {
		return true
	}
	return p.pending == 0
}
