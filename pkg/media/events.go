// ABOUTME: Media element events and listener registry
// ABOUTME: Listeners are keyed by handle so sessions can remove exactly what they added
package media

import "slices"

// EventType names a media element event
type EventType string

const (
	EventCanPlay EventType = "canplay"
	EventPlay    EventType = "play"
	EventPause   EventType = "pause"
	EventEnded   EventType = "ended"
	EventError   EventType = "error"
)

// Event is delivered to listeners
type Event struct {
	Type EventType
	Err  error
}

// Listener handles an event
type Listener func(Event)

// ListenerID identifies a registered listener
type ListenerID uint64

type listenerEntry struct {
	typ EventType
	fn  Listener
}

// AddEventListener registers fn for events of type typ
func (e *Element) AddEventListener(typ EventType, fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextListener++
	id := e.nextListener
	e.listeners[id] = listenerEntry{typ: typ, fn: fn}
	return id
}

// RemoveEventListener unregisters a listener. Unknown handles are ignored.
func (e *Element) RemoveEventListener(id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
}

// ListenerCount returns the number of registered listeners
func (e *Element) ListenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// emit calls matching listeners outside the element lock
func (e *Element) emit(ev Event) {
	e.mu.Lock()
	ids := make([]ListenerID, 0, len(e.listeners))
	for id, l := range e.listeners {
		if l.typ == ev.Type {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	fns := make([]Listener, len(ids))
	for i, id := range ids {
		fns[i] = e.listeners[id].fn
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
