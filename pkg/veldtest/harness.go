// Package veldtest provides an in-memory harness for exercising compiled
// components without a host embedder.
package veldtest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
	"github.com/veld-ui/veld/pkg/transition"
)

// frameDuration is how far the fake clock advances per settle pass.
const frameDuration = 16 * time.Millisecond

// ErrSettleTimeout is returned when FlushUntilSettled exceeds its timeout.
var ErrSettleTimeout = errors.New("FlushUntilSettled timed out: updates did not settle")

// Harness mounts components against an in-memory document and drives the
// scheduler and transition clock deterministically.
type Harness struct {
	sched *runtime.Scheduler
	body  *dom.Element
	root  runtime.Component

	clock     *FakeClock
	prevClock transition.Clock
}

// New creates a harness with a fresh scheduler, an empty body element, and
// a fake transition clock. Call Cleanup when done, or use NewWithT instead.
func New() *Harness {
	clk := NewFakeClock()
	h := &Harness{
		sched: runtime.NewScheduler(),
		body:  dom.NewElement("body"),
		clock: clk,
	}
	h.prevClock = transition.SetClock(clk)
	return h
}

// NewWithT creates a harness that auto-cleans up via t.Cleanup. This is the
// recommended constructor for tests.
func NewWithT(t *testing.T) *Harness {
	h := New()
	t.Cleanup(h.Cleanup)
	return h
}

// Cleanup destroys the mounted tree and restores the transition clock.
// Must be called if not using NewWithT.
func (h *Harness) Cleanup() {
	if h.root != nil {
		runtime.DestroyComponent(h.root)
		h.root = nil
	}
	transition.SetClock(h.prevClock)
}

// Scheduler returns the harness scheduler, for constructing components.
func (h *Harness) Scheduler() *runtime.Scheduler { return h.sched }

// Body returns the document element components are mounted into.
func (h *Harness) Body() *dom.Element { return h.body }

// Clock returns the fake clock for advancing time in tests.
func (h *Harness) Clock() *FakeClock { return h.clock }

// Root returns the mounted root component, nil before Mount.
func (h *Harness) Root() runtime.Component { return h.root }

// Mount mounts (or remounts) a component and flushes once.
func (h *Harness) Mount(c runtime.Component) {
	if h.root != nil {
		runtime.DestroyComponent(h.root)
		h.root = nil
	}
	h.root = c
	runtime.MountComponent(c, h.body, nil)
	h.Flush()
}

// Flush steps active transitions to the current fake time, then flushes
// the scheduler once.
func (h *Harness) Flush() {
	transition.Step()
	h.sched.Flush()
}

// FlushUntilSettled flushes until no work is pending or the timeout is
// reached. Each pass advances the fake clock by one frame, so running
// transitions play out. Returns ErrSettleTimeout on timeout.
func (h *Harness) FlushUntilSettled(timeout time.Duration) error {
	var elapsed time.Duration
	for elapsed < timeout {
		h.Flush()
		if !h.needsWork() {
			return nil
		}
		h.clock.Advance(frameDuration)
		elapsed += frameDuration
	}
	return ErrSettleTimeout
}

func (h *Harness) needsWork() bool {
	return h.sched.NeedsFlush() || transition.HasActive()
}

// Fire dispatches a synthetic event on el and flushes. value carries the
// event payload ("input" events read it as the control's value).
func (h *Harness) Fire(el *dom.Element, event, value string) {
	if el == nil {
		return
	}
	el.Dispatch(event, value)
	h.Flush()
}

// Click dispatches a click event on el and flushes.
func (h *Harness) Click(el *dom.Element) {
	h.Fire(el, "click", "")
}

// SetValue dispatches an input event carrying value, as a user edit would.
func (h *Harness) SetValue(el *dom.Element, value string) {
	h.Fire(el, "input", value)
}

// HTML renders the document as HTML-ish text.
func (h *Harness) HTML() string {
	return h.body.OuterHTML()
}

// Text returns the concatenated text content of the document.
func (h *Harness) Text() string {
	var sb strings.Builder
	h.body.Walk(func(n dom.Node) bool {
		if t, ok := n.(*dom.Text); ok {
			sb.WriteString(t.Data())
		}
		return true
	})
	return sb.String()
}

// Find evaluates a finder against the document.
func (h *Harness) Find(finder Finder) Result {
	return Result{nodes: finder.Evaluate(h.body), finder: finder}
}
