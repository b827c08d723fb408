package runtime

// SetContext associates a value with a key for this instance and its
// descendants. Calls must happen during component initialization, before
// children mount, so lookups see a settled ancestor chain.
func (b *Base) SetContext(key, value any) {
	if b.ctx == nil {
		b.ctx = make(map[any]any)
	}
	b.ctx[key] = value
}

// Context resolves a key against this instance and then its ancestors,
// nearest first.
func (b *Base) Context(key any) (any, bool) {
	for current := b; current != nil; {
		if v, ok := current.ctx[key]; ok {
			return v, true
		}
		if current.parent == nil {
			break
		}
		current = current.parent.base()
	}
	return nil, false
}

// MustContext is Context for keys the component requires; it panics with a
// descriptive message when the key is absent anywhere in the chain.
func (b *Base) MustContext(key any) any {
	v, ok := b.Context(key)
	if !ok {
		panic("runtime: no context value for key in component ancestry")
	}
	return v
}
