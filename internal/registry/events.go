package registry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/keshon/commandhub/internal/unit"

	"github.com/rs/zerolog"
)

// Bus is the transport's subscription surface, keyed by event name.
type Bus interface {
	Subscribe(event string, fn func(args ...any)) (unsubscribe func(), err error)
}

// Events binds event units to a Bus. Each event name gets a single bus
// subscription that fans out to its units in registration order.
//
// Replace unsubscribes everything it bound before subscribing again, so a
// reload never leaves duplicate handlers behind. A once-unit that already
// fired stays consumed across reloads.
type Events struct {
	bus Bus
	log zerolog.Logger

	mu       sync.Mutex
	bindings map[string]*binding
	consumed map[string]bool
}

type binding struct {
	name   string
	units  []*boundEvent
	cancel func()
}

type boundEvent struct {
	ev *unit.Event
}

// NewEvents returns an event registry bound to bus.
func NewEvents(bus Bus, log zerolog.Logger) *Events {
	return &Events{
		bus:      bus,
		log:      log,
		bindings: make(map[string]*binding),
		consumed: make(map[string]bool),
	}
}

func onceKey(ev *unit.Event) string { return ev.Name + "\x00" + ev.Path }

// Replace drops every current subscription and binds events instead.
// ctx is handed to every execution.
func (e *Events) Replace(ctx context.Context, events []*unit.Event) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unbindLocked()

	grouped := make(map[string]*binding)
	var order []string
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.Once && e.consumed[onceKey(ev)] {
			e.log.Debug().Str("event", ev.Name).Str("path", ev.Path).Msg("once event already consumed, not rebinding")
			continue
		}
		b, ok := grouped[ev.Name]
		if !ok {
			b = &binding{name: ev.Name}
			grouped[ev.Name] = b
			order = append(order, ev.Name)
		}
		b.units = append(b.units, &boundEvent{ev: ev})
	}

	bound := 0
	var errs []error
	for _, name := range order {
		b := grouped[name]
		cancel, err := e.bus.Subscribe(name, e.deliver(ctx, b))
		if err != nil {
			errs = append(errs, fmt.Errorf("subscribe %s: %w", name, err))
			continue
		}
		b.cancel = cancel
		e.bindings[name] = b
		bound += len(b.units)
	}
	if len(errs) > 0 {
		return bound, fmt.Errorf("bind events: %w", errors.Join(errs...))
	}
	return bound, nil
}

func (e *Events) deliver(ctx context.Context, b *binding) func(args ...any) {
	return func(args ...any) {
		for _, be := range b.units {
			if be.ev.Once && !e.consume(be.ev) {
				continue
			}
			e.run(ctx, be.ev, args)
		}
	}
}

// consume marks a once-unit as fired and reports whether this call was the
// first one.
func (e *Events) consume(ev *unit.Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := onceKey(ev)
	if e.consumed[key] {
		return false
	}
	e.consumed[key] = true
	return true
}

func (e *Events) run(ctx context.Context, ev *unit.Event, args []any) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("event", ev.Name).
				Str("path", ev.Path).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic in event handler")
		}
	}()
	if err := ev.Execute(ctx, args...); err != nil {
		e.log.Error().Err(err).Str("event", ev.Name).Str("path", ev.Path).Msg("event handler failed")
	}
}

// Bound lists the event names currently subscribed, sorted.
func (e *Events) Bound() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close unsubscribes everything.
func (e *Events) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unbindLocked()
}

func (e *Events) unbindLocked() {
	for name, b := range e.bindings {
		if b.cancel != nil {
			b.cancel()
		}
		delete(e.bindings, name)
	}
}
