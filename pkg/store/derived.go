package store

// NewDerived creates a read-only store computed from a source. The derived
// store holds no upstream subscription until it has a subscriber of its
// own; the first subscriber starts it and the last one stops it.
func NewDerived[A, T any](source Readable[A], compute func(A) T) Readable[T] {
	var zero T
	return NewWritableWithStart(zero, func(set func(T)) func() {
		return source.Subscribe(func(a A) {
			set(compute(a))
		})
	})
}

// NewDerived2 creates a read-only store computed from two sources. The
// computed value refreshes whenever either source changes.
func NewDerived2[A, B, T any](first Readable[A], second Readable[B], compute func(A, B) T) Readable[T] {
	var zero T
	return NewWritableWithStart(zero, func(set func(T)) func() {
		var (
			a       A
			b       B
			aReady  bool
			bReady  bool
			started bool
		)
		recompute := func() {
			if aReady && bReady {
				set(compute(a, b))
			}
		}
		unsubA := first.Subscribe(func(v A) {
			a, aReady = v, true
			if started {
				recompute()
			}
		})
		unsubB := second.Subscribe(func(v B) {
			b, bReady = v, true
			if started {
				recompute()
			}
		})
		// Initial values arrived synchronously above; publish once rather
		// than once per source.
		started = true
		recompute()
		return func() {
			unsubA()
			unsubB()
		}
	})
}
