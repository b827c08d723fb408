// Package transition animates elements entering and leaving the node tree.
//
// Generated code wires template transition directives to [Run]: an intro
// plays when a block mounts, an outro before it detaches. The host drives
// progress by calling [Step] once per frame; tests substitute a fake
// [Clock] and step deterministically.
//
// Interrupting a transition never jumps. Starting an intro while an outro
// is running reverses from the current eased position, and vice versa.
package transition

import (
	"sync"
	"time"

	"github.com/veld-ui/veld/pkg/dom"
)

// Direction distinguishes intro (entering) from outro (leaving).
type Direction int

const (
	// Intro plays from hidden to shown.
	Intro Direction = iota
	// Outro plays from shown to hidden.
	Outro
)

// Spec describes how an element transitions.
type Spec struct {
	// Delay postpones the start.
	Delay time.Duration
	// Duration is the play time from one end to the other.
	Duration time.Duration
	// Easing transforms linear progress; nil means linear.
	Easing func(float64) float64
	// Apply sets the element's visual state for eased progress t in [0,1],
	// where 0 is fully hidden and 1 is fully shown.
	Apply func(el *dom.Element, t float64)
}

// Runner drives one element's transition.
type Runner struct {
	el   *dom.Element
	spec Spec
	dir  Direction

	// progress is linear position in [0,1]; 0 hidden, 1 shown.
	progress float64
	delay    time.Duration
	last     time.Time
	done     func()
}

var (
	runnerMu      sync.Mutex
	activeRunners = make(map[*dom.Element]*Runner)
)

// Run starts (or redirects) a transition on el. If a runner is already
// active for el, its direction is replaced and playback continues from the
// current position, so interruptions reverse smoothly. done, if non-nil,
// runs when the transition reaches its target end.
func Run(el *dom.Element, spec Spec, dir Direction, done func()) *Runner {
	if el == nil || spec.Duration <= 0 {
		// Degenerate spec: snap to the target state.
		if el != nil && spec.Apply != nil {
			if dir == Intro {
				spec.Apply(el, 1)
			} else {
				spec.Apply(el, 0)
			}
		}
		if done != nil {
			done()
		}
		return nil
	}

	runnerMu.Lock()
	r, ok := activeRunners[el]
	if ok {
		r.dir = dir
		r.done = done
		r.spec.Apply = spec.Apply
		runnerMu.Unlock()
		return r
	}

	r = &Runner{el: el, spec: spec, dir: dir, delay: spec.Delay, done: done, last: Now()}
	if dir == Intro {
		r.progress = 0
	} else {
		r.progress = 1
	}
	activeRunners[el] = r
	runnerMu.Unlock()

	r.apply()
	return r
}

// Progress returns the runner's linear position in [0,1].
func (r *Runner) Progress() float64 { return r.progress }

func (r *Runner) easing() func(float64) float64 {
	if r.spec.Easing != nil {
		return r.spec.Easing
	}
	return LinearCurve
}

func (r *Runner) apply() {
	if r.spec.Apply != nil {
		r.spec.Apply(r.el, r.easing()(r.progress))
	}
}

// step advances the runner and reports whether it finished.
func (r *Runner) step(now time.Time) bool {
	elapsed := now.Sub(r.last)
	r.last = now

	if r.delay > 0 {
		r.delay -= elapsed
		if r.delay >= 0 {
			return false
		}
		elapsed = -r.delay
		r.delay = 0
	}

	delta := float64(elapsed) / float64(r.spec.Duration)
	if r.dir == Intro {
		r.progress += delta
		if r.progress >= 1 {
			r.progress = 1
		}
	} else {
		r.progress -= delta
		if r.progress <= 0 {
			r.progress = 0
		}
	}
	r.apply()

	return (r.dir == Intro && r.progress >= 1) || (r.dir == Outro && r.progress <= 0)
}

// Step advances all active transitions to the current clock time. Call
// once per frame.
func Step() {
	now := Now()

	runnerMu.Lock()
	runners := make([]*Runner, 0, len(activeRunners))
	for _, r := range activeRunners {
		runners = append(runners, r)
	}
	runnerMu.Unlock()

	for _, r := range runners {
		if !r.step(now) {
			continue
		}
		runnerMu.Lock()
		// Only remove if not redirected since the snapshot.
		if activeRunners[r.el] == r {
			delete(activeRunners, r.el)
		}
		runnerMu.Unlock()
		if r.done != nil {
			r.done()
		}
	}
}

// HasActive reports whether any transitions are running.
func HasActive() bool {
	runnerMu.Lock()
	defer runnerMu.Unlock()
	return len(activeRunners) > 0
}

// Cancel stops any transition on el without applying an end state.
func Cancel(el *dom.Element) {
	runnerMu.Lock()
	delete(activeRunners, el)
	runnerMu.Unlock()
}
