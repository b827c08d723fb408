package fixture

import (
	"time"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
	"github.com/veld-ui/veld/pkg/transition"
)

// toggleFade is the duration of Toggle's enter and exit transition.
const toggleFade = 80 * time.Millisecond

// Toggle is an if-block with an enter and exit transition:
//
//	{#if Show}<p transition:fade={transition.Fade(...)}>on</p>{/if}
type Toggle struct {
	runtime.Base

	Show bool

	b2 *toggleIf1
}

func NewToggle(sched *runtime.Scheduler, parent runtime.Component) *Toggle {
	c := &Toggle{}
	c.Show = true
	c.Init(sched, parent, c, "Toggle", 1)
	return c
}

func (c *Toggle) SetShow(v bool) {
	c.Show = v
	c.MarkDirty(0)
}

func (c *Toggle) Create() {
	c.b2 = &toggleIf1{c: c}
	c.b2.Create()
}

func (c *Toggle) Mount(parent *dom.Element, anchor dom.Node) {
	c.b2.Mount(parent, anchor)
}

func (c *Toggle) Patch(dirty []uint32) {
	c.b2.Patch(dirty)
}

func (c *Toggle) Detach() {
	c.b2.Detach()
}

type toggleIf1 struct {
	c      *Toggle
	parent *dom.Element
	mark   *dom.Anchor
	idx    int
	frag   runtime.Fragment
}

func (f *toggleIf1) Create() {
	f.mark = dom.NewAnchor("if")
	f.idx = -1
}

func (f *toggleIf1) Mount(parent *dom.Element, anchor dom.Node) {
	f.parent = parent
	dom.Insert(parent, f.mark, anchor)
	if f.frag != nil {
		f.frag.Mount(parent, f.mark)
		return
	}
	f.sync(nil)
}

func (f *toggleIf1) Patch(dirty []uint32) {
	if dirty[0]&0x1 != 0 {
		f.sync(dirty)
		return
	}
	if f.frag != nil {
		f.frag.Patch(dirty)
	}
}

func (f *toggleIf1) sync(dirty []uint32) {
	idx := -1
	switch {
	case f.c.Show:
		idx = 0
	}
	if idx == f.idx {
		if f.frag != nil && dirty != nil {
			f.frag.Patch(dirty)
		}
		return
	}
	old := f.frag
	f.idx = idx
	f.frag = nil
	switch idx {
	case 0:
		f.frag = &toggleIf1b0{c: f.c}
	}
	if old != nil {
		runtime.DetachWithOutro(old)
	}
	if f.frag != nil {
		f.frag.Create()
		f.frag.Mount(f.parent, f.mark)
	}
}

func (f *toggleIf1) Detach() {
	if f.frag != nil {
		f.frag.Detach()
		f.frag = nil
		f.idx = -1
	}
	dom.Detach(f.mark)
}

type toggleIf1b0 struct {
	c  *Toggle
	e3 *dom.Element
}

func (f *toggleIf1b0) Create() {
	f.e3 = dom.NewElement("p")
	dom.Insert(f.e3, dom.NewText("on"), nil)
}

func (f *toggleIf1b0) Mount(parent *dom.Element, anchor dom.Node) {
	dom.Insert(parent, f.e3, anchor)
	transition.Run(f.e3, transition.Fade(toggleFade), transition.Intro, nil)
}

func (f *toggleIf1b0) Patch(dirty []uint32) {
}

func (f *toggleIf1b0) Detach() {
	dom.Detach(f.e3)
}

func (f *toggleIf1b0) Outro(done func()) bool {
	remaining := 1
	fire := func() {
		remaining--
		if remaining == 0 {
			done()
		}
	}
	transition.Run(f.e3, transition.Fade(toggleFade), transition.Outro, fire)
	return true
}
