package runtime

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/veld-ui/veld/pkg/errors"
)

// maxFlushPasses bounds cascaded invalidation inside one flush. Exceeding
// it means two components keep dirtying each other.
const maxFlushPasses = 100

// Scheduler batches dirty component instances and patches them in depth
// order on flush.
type Scheduler struct {
	mu         sync.Mutex
	queue      []Component
	queuedSet  map[Component]bool
	dispatched []func()
	tickFns    []func()
	flushing   bool
	roots      []Component

	// OnNeedsFlush is called when work arrives while no flush is running,
	// signalling the host that Flush should be scheduled. Optional.
	OnNeedsFlush func()
}

// NewScheduler creates a scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		queuedSet: make(map[Component]bool),
	}
}

// enqueue adds a component to the dirty queue at most once.
func (s *Scheduler) enqueue(c Component) {
	s.mu.Lock()
	if s.queuedSet[c] {
		s.mu.Unlock()
		return
	}
	s.queuedSet[c] = true
	s.queue = append(s.queue, c)
	signal := !s.flushing && s.OnNeedsFlush != nil
	s.mu.Unlock()

	if signal {
		s.OnNeedsFlush()
	}
}

// Dispatch queues fn to run at the start of the next flush. It is the only
// safe way for background goroutines to touch components or the node tree.
func (s *Scheduler) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.dispatched = append(s.dispatched, fn)
	signal := !s.flushing && s.OnNeedsFlush != nil
	s.mu.Unlock()

	if signal {
		s.OnNeedsFlush()
	}
}

// Tick registers fn to run after the in-progress (or next) flush settles.
func (s *Scheduler) Tick(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.tickFns = append(s.tickFns, fn)
	signal := !s.flushing && s.OnNeedsFlush != nil
	s.mu.Unlock()

	if signal {
		s.OnNeedsFlush()
	}
}

// NeedsFlush reports whether dirty components, dispatched closures, or tick
// waiters are pending.
func (s *Scheduler) NeedsFlush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0 || len(s.dispatched) > 0 || len(s.tickFns) > 0
}

// Flush drains dispatched closures, then patches dirty instances in depth
// order until the queue is stable, then runs tick waiters. Invalidation
// caused by a patch is processed within the same flush, bounded by
// maxFlushPasses.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.flushing = false
		// Tick waiters run after the drain loop, so work they enqueue is
		// never drained by this flush. Wake the host for it.
		signal := s.OnNeedsFlush != nil &&
			(len(s.queue) > 0 || len(s.dispatched) > 0 || len(s.tickFns) > 0)
		s.mu.Unlock()
		if signal {
			s.OnNeedsFlush()
		}
	}()

	s.runDispatched()

	pass := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			break
		}

		pass++
		if pass > maxFlushPasses {
			s.mu.Unlock()
			errors.Report(&errors.VeldError{
				Op:   "runtime.Flush",
				Kind: errors.KindRender,
				Err:  fmt.Errorf("update loop: %d flush passes without settling", maxFlushPasses),
			})
			s.discardQueue()
			break
		}

		slices.SortFunc(s.queue, func(a, b Component) int {
			return a.Depth() - b.Depth()
		})
		queue := s.queue
		s.queue = nil
		clear(s.queuedSet)
		s.mu.Unlock()

		var patched []Component
		for _, c := range queue {
			b := c.base()
			if !b.mounted || b.poisoned || !b.hasDirty() {
				continue
			}
			for _, hook := range b.beforeHooks {
				hook()
			}
			dirty := b.takeDirty()
			s.safePatch(c, dirty)
			patched = append(patched, c)
		}
		for _, c := range patched {
			b := c.base()
			if !b.mounted || b.poisoned {
				continue
			}
			for _, hook := range b.afterHooks {
				hook()
			}
		}

		s.runDispatched()
	}

	s.mu.Lock()
	ticks := s.tickFns
	s.tickFns = nil
	s.mu.Unlock()
	for _, fn := range ticks {
		fn()
	}
}

// safePatch applies dirty bits with panic recovery. A panicking instance is
// quarantined: the error is reported once and the instance receives no
// further patches, leaving the rest of the tree live.
func (s *Scheduler) safePatch(c Component, dirty []uint32) {
	b := c.base()
	defer func() {
		if r := recover(); r != nil {
			b.poisoned = true
			errors.ReportRenderError(&errors.RenderError{
				Component:  reflect.TypeOf(c).String(),
				Instance:   b.id,
				Recovered:  r,
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			})
		}
	}()
	c.Patch(dirty)
}

func (s *Scheduler) runDispatched() {
	for {
		s.mu.Lock()
		if len(s.dispatched) == 0 {
			s.mu.Unlock()
			return
		}
		fns := s.dispatched
		s.dispatched = nil
		s.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}

func (s *Scheduler) discardQueue() {
	s.mu.Lock()
	s.queue = nil
	clear(s.queuedSet)
	s.mu.Unlock()
}

// Roots returns mounted root instances for inspection.
func (s *Scheduler) Roots() []Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Component, len(s.roots))
	copy(out, s.roots)
	return out
}

func (s *Scheduler) addRoot(c Component) {
	s.mu.Lock()
	s.roots = append(s.roots, c)
	s.mu.Unlock()
}

func (s *Scheduler) removeRoot(c Component) {
	s.mu.Lock()
	for i, root := range s.roots {
		if root == c {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}
