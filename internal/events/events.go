// Package events implements the synchronous publish/subscribe bus wiring the
// pipeline components together.
//
// Listeners register under an explicit name (conventionally their package
// path) so subscriptions are idempotent and publishers can scope delivery to
// a name prefix. Listener errors surface to the publisher by design: failing
// hooks must not be silently dropped.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// Listener handles a published event.
type Listener func(event string, payload any) error

// Condition guards listener invocation. A nil condition always passes.
type Condition func(event string, payload any) bool

// Event names published by the core.
const (
	ContentAdded   = "content.added"
	ContentRemoved = "content.removed"
	SpoolRejected  = "spool.rejected"
	TunerAlert     = "tuner.alert"
	Shutdown       = "shutdown"
)

type subscription struct {
	name      string
	listener  Listener
	condition Condition
}

// Bus is a synchronous event bus. The zero value is not usable; construct
// with New.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subscriptions: make(map[string][]subscription)}
}

// Subscribe registers a named listener for an event. Re-subscribing the same
// (event, name) pair replaces the previous registration in place, keeping the
// operation idempotent.
func (b *Bus) Subscribe(event, name string, listener Listener, condition Condition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscriptions[event]
	for i, sub := range subs {
		if sub.name == name {
			subs[i] = subscription{name: name, listener: listener, condition: condition}
			return
		}
	}
	b.subscriptions[event] = append(subs, subscription{name: name, listener: listener, condition: condition})
}

// Unsubscribe removes a named listener. Absent pairs are a no-op.
func (b *Bus) Unsubscribe(event, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscriptions[event]
	for i, sub := range subs {
		if sub.name == name {
			b.subscriptions[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event synchronously to matching listeners in
// subscription order. When scope is non-empty only listeners whose name
// starts with scope run. The first listener error aborts delivery and
// propagates to the caller.
func (b *Bus) Publish(event string, payload any, scope string) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscriptions[event]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if scope != "" && !strings.HasPrefix(sub.name, scope) {
			continue
		}
		if sub.condition != nil && !sub.condition(event, payload) {
			continue
		}
		if err := sub.listener(event, payload); err != nil {
			return fmt.Errorf("listener %s for %s: %w", sub.name, event, err)
		}
	}
	return nil
}
