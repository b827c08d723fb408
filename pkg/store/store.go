// Package store provides observable values shared outside the component
// tree.
//
// A store holds a single value and notifies subscribers when it changes.
// Subscribing delivers the current value synchronously, so readers never
// observe an uninitialized state. Stores are safe for concurrent use;
// notifications run on the goroutine that called Set or Update.
//
// Basic usage:
//
//	count := store.NewWritable(0)
//	unsubscribe := count.Subscribe(func(v int) {
//	    fmt.Println("count is", v)
//	})
//	count.Set(1)
//	count.Update(func(v int) int { return v + 1 })
//	unsubscribe()
package store

import "sync"

// Readable is the minimal observable-value contract.
type Readable[T any] interface {
	// Subscribe registers fn and immediately calls it with the current
	// value. The returned func removes the subscription; calling it more
	// than once is safe.
	Subscribe(fn func(T)) (unsubscribe func())
}

// StartFunc runs when a store gains its first subscriber. It may push
// values through set and returns a stop func (possibly nil) that runs when
// the last subscriber leaves.
type StartFunc[T any] func(set func(T)) (stop func())

type subscriber[T any] struct {
	fn func(T)
}

// Writable is a store whose value can be set from outside.
type Writable[T any] struct {
	mu      sync.Mutex
	value   T
	subs    []*subscriber[T]
	start   StartFunc[T]
	stop    func()
	started bool

	// notifying guards against re-entrant Set from inside a subscriber;
	// queued values are delivered in order after the current round.
	notifying bool
	queue     []T
}

// NewWritable creates a writable store with an initial value.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial}
}

// NewWritableWithStart creates a writable store whose start func runs when
// the first subscriber arrives and whose stop func runs when the last one
// leaves. Useful for stores backed by external feeds.
func NewWritableWithStart[T any](initial T, start StartFunc[T]) *Writable[T] {
	return &Writable[T]{value: initial, start: start}
}

// Subscribe implements Readable.
func (w *Writable[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	sub := &subscriber[T]{fn: fn}

	// Run the start func before registering the subscriber so any values it
	// pushes synchronously land in w.value and the subscriber still receives
	// exactly one initial call.
	w.mu.Lock()
	runStart := len(w.subs) == 0 && w.start != nil && !w.started
	if runStart {
		w.started = true
	}
	start := w.start
	w.mu.Unlock()

	if runStart {
		stop := start(w.Set)
		w.mu.Lock()
		w.stop = stop
		w.mu.Unlock()
	}

	w.mu.Lock()
	w.subs = append(w.subs, sub)
	current := w.value
	w.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() { w.unsubscribe(sub) })
	}
}

func (w *Writable[T]) unsubscribe(sub *subscriber[T]) {
	w.mu.Lock()
	for i, candidate := range w.subs {
		if candidate == sub {
			w.subs = append(w.subs[:i], w.subs[i+1:]...)
			break
		}
	}
	var stop func()
	if len(w.subs) == 0 && w.started {
		stop = w.stop
		w.stop = nil
		w.started = false
	}
	w.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Set stores a new value and notifies subscribers in subscription order.
// A Set issued from inside a subscriber is queued and delivered after the
// in-flight notification round completes.
func (w *Writable[T]) Set(value T) {
	w.mu.Lock()
	w.value = value
	if w.notifying {
		w.queue = append(w.queue, value)
		w.mu.Unlock()
		return
	}
	w.notifying = true
	w.mu.Unlock()

	w.notify(value)

	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.notifying = false
			w.mu.Unlock()
			return
		}
		next := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()
		w.notify(next)
	}
}

func (w *Writable[T]) notify(value T) {
	w.mu.Lock()
	subs := make([]*subscriber[T], len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	for _, sub := range subs {
		sub.fn(value)
	}
}

// Update applies a transformation to the current value.
func (w *Writable[T]) Update(transform func(T) T) {
	if transform == nil {
		return
	}
	w.mu.Lock()
	next := transform(w.value)
	w.mu.Unlock()
	w.Set(next)
}

// Value returns the current value without subscribing.
func (w *Writable[T]) Value() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// SubscriberCount returns the number of active subscriptions.
func (w *Writable[T]) SubscriberCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Get reads a store's current value via a one-shot subscription.
func Get[T any](r Readable[T]) T {
	var value T
	unsubscribe := r.Subscribe(func(v T) { value = v })
	unsubscribe()
	return value
}
