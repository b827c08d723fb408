// Package runtime drives compiled Veld components.
//
// The compiler emits one Go type per component implementing [Component].
// Instances render into a [dom.Element] tree and are kept current by a
// [Scheduler]: state writes set per-variable dirty bits and enqueue the
// instance, and the next flush patches every queued instance in depth
// order. Patching touches only the nodes whose dependency masks intersect
// the dirty bits.
//
// # Threading
//
// All component and tree access happens on the goroutine that calls
// [Scheduler.Flush]. Background goroutines hand work to that goroutine
// with [Scheduler.Dispatch]:
//
//	go func() {
//	    result := fetch()
//	    sched.Dispatch(func() {
//	        cmp.SetItems(result) // safe: runs inside the next flush
//	    })
//	}()
//
// # Lifecycle
//
// OnMount hooks run after the instance's nodes are in the tree. OnDestroy
// hooks and registered disposers run in reverse order on destroy.
// BeforeUpdate/AfterUpdate bracket each patch of a dirty instance.
// Tick callbacks run once the in-progress (or next) flush has settled.
package runtime
