// Package action implements element-level behaviors attached with use:
// directives.
//
// An action runs once when its element mounts and returns a handle whose
// Update func fires when the directive's parameter expression changes and
// whose Destroy func fires when the element's fragment detaches.
package action

import (
	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
)

// Handle is an action's lifecycle surface. Either func may be nil.
type Handle struct {
	// Update is called with new parameters when the directive's expression
	// changes.
	Update func(params any)
	// Destroy is called when the element leaves the tree.
	Destroy func()
}

// Action attaches a behavior to an element and returns its handle.
type Action func(el *dom.Element, params any) Handle

// Applied tracks a mounted action so generated code can forward parameter
// changes and tie teardown to the owning component.
type Applied struct {
	handle Handle
}

// Apply mounts act on el and registers its teardown with owner.
func Apply(owner *runtime.Base, el *dom.Element, act Action, params any) *Applied {
	if act == nil {
		return &Applied{}
	}
	a := &Applied{handle: act(el, params)}
	if a.handle.Destroy != nil {
		owner.OnDestroy(a.handle.Destroy)
	}
	return a
}

// Update forwards new parameters to the action.
func (a *Applied) Update(params any) {
	if a.handle.Update != nil {
		a.handle.Update(params)
	}
}
