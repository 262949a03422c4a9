// Package dispatch routes decoded stream events to registered subscribers.
//
// Independent views (agent cards, turn feeds, status badges) react to the same
// stream without knowing about each other: each registers interest in a kind,
// or in every kind via the wildcard, and receives events in a deterministic
// order. Dispatch is fire-and-forget; a failing subscriber never prevents the
// rest from running.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/g960059/agentdash/internal/api"
)

// Wildcard subscribes a handler to every event kind.
const Wildcard = "*"

// Handler receives a dispatched event. The event carries both payload and kind.
type Handler func(ev api.Event)

type subscription struct {
	id      int64
	handler Handler
}

// Registry is a keyed publish/subscribe table. It is constructed explicitly
// and owned by a Supervisor; there is no package-level instance.
type Registry struct {
	mu       sync.Mutex
	subs     map[string][]*subscription
	wildcard []*subscription
	nextID   int64
	onError  func(error)
}

// NewRegistry creates an empty registry. onError receives subscriber panics
// converted to errors; nil means they are silently swallowed.
func NewRegistry(onError func(error)) *Registry {
	return &Registry{
		subs:    make(map[string][]*subscription),
		onError: onError,
	}
}

// On registers a handler for the given kind and returns its disposer.
// Registering for Wildcard is equivalent to OnAny.
func (r *Registry) On(kind string, h Handler) func() {
	if kind == Wildcard {
		return r.OnAny(h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := &subscription{id: r.nextID, handler: h}
	r.nextID++
	r.subs[kind] = append(r.subs[kind], sub)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.subs[kind] = remove(r.subs[kind], sub.id)
	}
}

// OnAny registers a catch-all handler invoked for every event kind, after the
// kind-specific handlers for the same event. Returns its disposer.
func (r *Registry) OnAny(h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := &subscription{id: r.nextID, handler: h}
	r.nextID++
	r.wildcard = append(r.wildcard, sub)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.wildcard = remove(r.wildcard, sub.id)
	}
}

// Dispatch invokes every handler registered for ev.Kind in insertion order,
// then every wildcard handler in insertion order. Each invocation is isolated:
// a panicking handler is recovered and reported, and later handlers still run.
func (r *Registry) Dispatch(ev api.Event) {
	r.mu.Lock()
	matched := make([]*subscription, 0, len(r.subs[ev.Kind])+len(r.wildcard))
	matched = append(matched, r.subs[ev.Kind]...)
	matched = append(matched, r.wildcard...)
	r.mu.Unlock()

	for _, sub := range matched {
		r.invoke(sub.handler, ev)
	}
}

func (r *Registry) invoke(h Handler, ev api.Event) {
	defer func() {
		if rec := recover(); rec != nil && r.onError != nil {
			r.onError(fmt.Errorf("dispatch %s: subscriber panic: %v", ev.Kind, rec))
		}
	}()
	h(ev)
}

func remove(subs []*subscription, id int64) []*subscription {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}
