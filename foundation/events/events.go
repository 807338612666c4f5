// Package events fans out narration strings (mining progress, adversary
// mode transitions, chain reorgs) to whatever viewer websocket
// connections are currently subscribed.
package events

import (
	"fmt"
	"sync"
)

// Events maintains a mapping of subscriber id to channel so the
// viewer websocket handler can register a connection and receive the
// narration pushed onto it.
type Events struct {
	m  map[string]chan string
	mu sync.RWMutex
}

// New constructs an Events fanout with no subscribers.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes every channel handed out by Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire registers a subscriber id (typically a viewer connection's
// request trace ID) and returns the channel its narration will arrive on.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	evt.m[id] = make(chan string)

	return evt.m[id]
}

// Release closes and removes the channel handed out by Acquire for id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Send broadcasts a narration string to every registered subscriber.
// Send never blocks waiting for a slow or absent receiver.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
		}
	}
}
