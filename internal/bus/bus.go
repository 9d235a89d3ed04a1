// Package bus is the process-wide publish/subscribe hub. It owns the current
// office projection and a bounded event history, and fans both out to
// registered listeners with per-listener fault isolation.
package bus

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/gosuda/officewatch/internal/diff"
	"github.com/gosuda/officewatch/internal/projection"
)

// HistoryCapacity bounds the in-memory event history. Insertion past the
// capacity evicts the oldest entry.
const HistoryCapacity = 1000

// StateListener receives every published projection.
type StateListener func(*projection.Office)

// EventListener receives every emitted domain event.
type EventListener func(diff.Event)

type stateSub struct {
	id int
	fn StateListener
}

type eventSub struct {
	id int
	fn EventListener
}

// Bus holds the current projection and the bounded history. All mutation of
// shared state happens inside the bus; listeners only ever see clones and
// immutable event values.
type Bus struct {
	logger zerolog.Logger

	mu        sync.Mutex
	state     *projection.Office
	history   []diff.Event
	stateSubs []stateSub
	eventSubs []eventSub
	nextID    int
	disposed  bool
}

// New creates an empty bus.
func New(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger}
}

// OnStateChange registers a state listener and synchronously invokes it once
// with the current projection before returning, so a new subscriber is never
// left without an initial view. The returned func unsubscribes.
func (b *Bus) OnStateChange(fn StateListener) func() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.stateSubs = append(b.stateSubs, stateSub{id: id, fn: fn})
	current := b.state.Clone()
	b.mu.Unlock()

	b.safeNotifyState(fn, current)

	return func() { b.removeStateSub(id) }
}

// OnEvent registers an event listener. The returned func unsubscribes.
func (b *Bus) OnEvent(fn EventListener) func() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.eventSubs = append(b.eventSubs, eventSub{id: id, fn: fn})
	b.mu.Unlock()

	return func() { b.removeEventSub(id) }
}

// SetState replaces the projection wholesale and notifies every state
// listener in registration order.
func (b *Bus) SetState(next *projection.Office) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.state = next
	subs := append([]stateSub(nil), b.stateSubs...)
	clone := next.Clone()
	b.mu.Unlock()

	for _, sub := range subs {
		b.safeNotifyState(sub.fn, clone)
	}
}

// Emit appends the event to history, evicting the oldest entry at capacity,
// then notifies every event listener in registration order.
func (b *Bus) Emit(event diff.Event) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.history = append(b.history, event)
	if len(b.history) > HistoryCapacity {
		b.history = b.history[len(b.history)-HistoryCapacity:]
	}
	subs := append([]eventSub(nil), b.eventSubs...)
	b.mu.Unlock()

	for _, sub := range subs {
		b.safeNotifyEvent(sub.fn, event)
	}
}

// State returns a clone of the current projection, nil before the first
// SetState.
func (b *Bus) State() *projection.Office {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clone()
}

// History returns a copy of the full bounded history, oldest first.
func (b *Bus) History() []diff.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]diff.Event(nil), b.history...)
}

// Replay returns the history entries with Timestamp at or after fromMillis.
func (b *Bus) Replay(fromMillis int64) []diff.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []diff.Event
	for _, e := range b.history {
		if e.Timestamp >= fromMillis {
			out = append(out, e)
		}
	}
	return out
}

// Dispose clears all listeners and history. Idempotent; the bus ignores all
// calls afterwards.
func (b *Bus) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.stateSubs = nil
	b.eventSubs = nil
	b.history = nil
	b.state = nil
}

// safeNotifyState invokes a state listener, recovering a panic so one broken
// consumer cannot break the others or the producer.
func (b *Bus) safeNotifyState(fn StateListener, state *projection.Office) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("state listener panicked")
		}
	}()
	fn(state)
}

func (b *Bus) safeNotifyEvent(fn EventListener, event diff.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("event listener panicked")
		}
	}()
	fn(event)
}

func (b *Bus) removeStateSub(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.stateSubs {
		if sub.id == id {
			b.stateSubs = append(b.stateSubs[:i], b.stateSubs[i+1:]...)
			return
		}
	}
}

func (b *Bus) removeEventSub(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.eventSubs {
		if sub.id == id {
			b.eventSubs = append(b.eventSubs[:i], b.eventSubs[i+1:]...)
			return
		}
	}
}
