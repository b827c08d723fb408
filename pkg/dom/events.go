package dom

// Event is a synthetic event delivered to element handlers.
type Event struct {
	// Type is the event name, e.g. "click" or "input".
	Type string
	// Target is the element the event was dispatched on.
	Target *Element
	// Value carries event payload, e.g. the input value for "input" events.
	Value string

	stopped bool
}

// StopPropagation prevents the event from bubbling to ancestors.
func (ev *Event) StopPropagation() {
	ev.stopped = true
}

// Handler handles a dispatched event.
type Handler func(ev *Event)

type handlerEntry struct {
	fn Handler
}

// On registers a handler for the named event and returns a removal func.
func (e *Element) On(event string, fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	if e.handlers == nil {
		e.handlers = make(map[string][]*handlerEntry)
	}
	entry := &handlerEntry{fn: fn}
	e.handlers[event] = append(e.handlers[event], entry)
	return func() {
		list := e.handlers[event]
		for i, candidate := range list {
			if candidate == entry {
				e.handlers[event] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// HandlerCount returns the number of handlers registered for event.
func (e *Element) HandlerCount(event string) int {
	return len(e.handlers[event])
}

// Dispatch delivers a synthetic event to e and bubbles it to ancestors
// until stopped. It returns the event for inspection.
func (e *Element) Dispatch(event string, value string) *Event {
	ev := &Event{Type: event, Target: e, Value: value}
	for current := e; current != nil && !ev.stopped; current = current.parent {
		// Copy so removals during dispatch don't skip handlers.
		list := make([]*handlerEntry, len(current.handlers[event]))
		copy(list, current.handlers[event])
		for _, entry := range list {
			entry.fn(ev)
			if ev.stopped {
				break
			}
		}
	}
	return ev
}
