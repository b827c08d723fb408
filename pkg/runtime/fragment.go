package runtime

import "github.com/veld-ui/veld/pkg/dom"

// Outroer is implemented by generated block fragments whose removal plays
// an exit transition before the nodes leave the tree.
type Outroer interface {
	// Outro starts the exit transition and reports whether one was started.
	// done must run exactly once when the transition completes.
	Outro(done func()) bool
}

// DetachWithOutro removes a fragment, playing its exit transition first
// when it has one.
func DetachWithOutro(f Fragment) {
	if f == nil {
		return
	}
	if o, ok := f.(Outroer); ok {
		if o.Outro(func() { f.Detach() }) {
			return
		}
	}
	f.Detach()
}

// CallHandler invokes a template event-handler value. Handlers may ignore
// the event or take it; generated code routes both shapes through here.
func CallHandler(fn any, ev *dom.Event) {
	switch h := fn.(type) {
	case func():
		h()
	case func(*dom.Event):
		h(ev)
	case dom.Handler:
		h(ev)
	}
}
