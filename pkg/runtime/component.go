package runtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/veld-ui/veld/pkg/dom"
)

// Fragment is the imperative rendering contract emitted by the compiler.
// Create builds nodes and wires handlers, Mount inserts the fragment's
// top-level nodes before anchor (calling Mount again moves them), Patch
// applies the given dirty bits, and Detach removes the nodes.
type Fragment interface {
	Create()
	Mount(parent *dom.Element, anchor dom.Node)
	Patch(dirty []uint32)
	Detach()
}

// Component is a mounted component instance.
type Component interface {
	Fragment

	// Depth returns the instance's depth in the component tree; roots are 0.
	Depth() int

	base() *Base
}

// Base provides instance bookkeeping for compiled components. The compiler
// embeds it in every generated component type.
type Base struct {
	id     string
	name   string
	depth  int
	sched  *Scheduler
	parent Component
	self   Component

	dirty    []uint32
	mounted  bool
	poisoned bool

	children []Component
	ctx      map[any]any

	mountHooks  []func()
	beforeHooks []func()
	afterHooks  []func()
	disposers   []func()
	destroyed   bool
	disposeMu   sync.Mutex
}

func (b *Base) base() *Base { return b }

// Init wires the instance into the tree. bits is the number of reactive
// variables the compiler assigned to this component.
func (b *Base) Init(sched *Scheduler, parent Component, self Component, name string, bits int) {
	b.id = uuid.NewString()
	b.name = name
	b.sched = sched
	b.parent = parent
	b.self = self
	b.dirty = make([]uint32, (bits+31)/32)
	if parent != nil {
		b.depth = parent.Depth() + 1
		pb := parent.base()
		pb.children = append(pb.children, self)
	}
}

// ID returns the instance id.
func (b *Base) ID() string { return b.id }

// Name returns the component type name.
func (b *Base) Name() string { return b.name }

// Depth returns the instance depth in the component tree.
func (b *Base) Depth() int { return b.depth }

// Scheduler returns the scheduler driving this instance.
func (b *Base) Scheduler() *Scheduler { return b.sched }

// Mounted reports whether the instance is in the tree.
func (b *Base) Mounted() bool { return b.mounted }

// Children returns mounted child instances. The slice is shared; callers
// must not mutate it.
func (b *Base) Children() []Component { return b.children }

// DirtyWords returns a copy of the current dirty bits.
func (b *Base) DirtyWords() []uint32 {
	out := make([]uint32, len(b.dirty))
	copy(out, b.dirty)
	return out
}

// MarkDirty sets a dirty bit and enqueues the instance for the next flush.
// Generated invalidate helpers call this on every tracked assignment.
func (b *Base) MarkDirty(bit int) {
	word := bit / 32
	if word >= len(b.dirty) {
		return
	}
	b.dirty[word] |= 1 << (bit % 32)
	if b.sched != nil && b.self != nil {
		b.sched.enqueue(b.self)
	}
}

// MarkDirtyMask sets every bit of mask within the given word and enqueues
// the instance. Generated code uses this when one statement touches several
// variables.
func (b *Base) MarkDirtyMask(word int, mask uint32) {
	if word >= len(b.dirty) || mask == 0 {
		return
	}
	b.dirty[word] |= mask
	if b.sched != nil && b.self != nil {
		b.sched.enqueue(b.self)
	}
}

// takeDirty snapshots and clears the dirty bits. Clearing before Patch
// runs means re-entrant invalidation re-queues the instance instead of
// being lost.
func (b *Base) takeDirty() []uint32 {
	snapshot := make([]uint32, len(b.dirty))
	copy(snapshot, b.dirty)
	for i := range b.dirty {
		b.dirty[i] = 0
	}
	return snapshot
}

func (b *Base) hasDirty() bool {
	for _, word := range b.dirty {
		if word != 0 {
			return true
		}
	}
	return false
}

// OnMount registers a hook to run after the instance's nodes are mounted.
func (b *Base) OnMount(fn func()) {
	if fn != nil {
		b.mountHooks = append(b.mountHooks, fn)
	}
}

// OnDestroy registers cleanup to run when the instance is destroyed.
// Cleanups run in reverse registration order.
func (b *Base) OnDestroy(fn func()) {
	if fn == nil {
		return
	}
	b.disposeMu.Lock()
	defer b.disposeMu.Unlock()
	if b.destroyed {
		fn()
		return
	}
	b.disposers = append(b.disposers, fn)
}

// BeforeUpdate registers a hook to run before each patch of a dirty
// instance.
func (b *Base) BeforeUpdate(fn func()) {
	if fn != nil {
		b.beforeHooks = append(b.beforeHooks, fn)
	}
}

// AfterUpdate registers a hook to run after each patch of a dirty instance.
func (b *Base) AfterUpdate(fn func()) {
	if fn != nil {
		b.afterHooks = append(b.afterHooks, fn)
	}
}

// AutoSubscribe subscribes to a notification source for the instance's
// lifetime. The unsubscribe func is registered as a disposer. Generated
// code uses this for store bindings in the script block.
func (b *Base) AutoSubscribe(subscribe func() (unsubscribe func())) {
	if subscribe == nil {
		return
	}
	b.OnDestroy(subscribe())
}

// runDisposers executes registered cleanups in reverse order, once.
func (b *Base) runDisposers() {
	b.disposeMu.Lock()
	if b.destroyed {
		b.disposeMu.Unlock()
		return
	}
	b.destroyed = true
	disposers := b.disposers
	b.disposers = nil
	b.disposeMu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i]()
	}
}

// MountComponent creates c's fragment, inserts it before anchor, and runs
// mount hooks. Roots (parent passed as nil at Init) are registered with the
// scheduler for inspection.
func MountComponent(c Component, parent *dom.Element, anchor dom.Node) {
	b := c.base()
	c.Create()
	c.Mount(parent, anchor)
	b.mounted = true
	if b.parent == nil && b.sched != nil {
		b.sched.addRoot(c)
	}
	for _, hook := range b.mountHooks {
		hook()
	}
	b.mountHooks = nil
}

// DestroyComponent tears down an instance: children first, then disposers
// (reverse order), then the fragment's nodes.
func DestroyComponent(c Component) {
	b := c.base()
	if !b.mounted {
		return
	}
	b.mounted = false

	children := b.children
	b.children = nil
	for _, child := range children {
		DestroyComponent(child)
	}

	b.runDisposers()
	c.Detach()

	if b.parent != nil {
		pb := b.parent.base()
		for i, sibling := range pb.children {
			if sibling == c {
				pb.children = append(pb.children[:i], pb.children[i+1:]...)
				break
			}
		}
	} else if b.sched != nil {
		b.sched.removeRoot(c)
	}
}
