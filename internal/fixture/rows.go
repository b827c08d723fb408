// Package fixture holds components written in the exact shape the veld
// compiler emits. They pin the contract between generated code and the
// runtime packages: the tests here mount them through veldtest and assert
// on the node tree, which is coverage the compiler's source-level tests
// cannot give.
package fixture

import (
	"fmt"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
)

// Rows is a keyed each-block over a string list:
//
//	{#each Items as item (item)}<li>{item}</li>{/each}
type Rows struct {
	runtime.Base

	Items []string

	e1 *dom.Element
	b3 *rowsEach2
}

func NewRows(sched *runtime.Scheduler, parent runtime.Component) *Rows {
	c := &Rows{}
	c.Items = nil
	c.Init(sched, parent, c, "Rows", 1)
	return c
}

func (c *Rows) SetItems(v []string) {
	c.Items = v
	c.MarkDirty(0)
}

func (c *Rows) Create() {
	c.e1 = dom.NewElement("ul")
	c.b3 = &rowsEach2{c: c}
	c.b3.Create()
	c.b3.Mount(c.e1, nil)
}

func (c *Rows) Mount(parent *dom.Element, anchor dom.Node) {
	dom.Insert(parent, c.e1, anchor)
}

func (c *Rows) Patch(dirty []uint32) {
	c.b3.Patch(dirty)
}

func (c *Rows) Detach() {
	dom.Detach(c.e1)
}

type rowsEach2 struct {
	c      *Rows
	parent *dom.Element
	mark   *dom.Anchor
	items  []runtime.Keyed
}

func (f *rowsEach2) Create() {
	f.mark = dom.NewAnchor("each")
}

func (f *rowsEach2) Mount(parent *dom.Element, anchor dom.Node) {
	f.parent = parent
	dom.Insert(parent, f.mark, anchor)
	if f.items != nil {
		for _, it := range f.items {
			it.Mount(parent, f.mark)
		}
		return
	}
	f.reconcile()
}

func (f *rowsEach2) Patch(dirty []uint32) {
	if dirty[0]&0x1 != 0 {
		f.reconcile()
		return
	}
	for _, it := range f.items {
		it.Patch(dirty)
	}
}

func (f *rowsEach2) reconcile() {
	list := f.c.Items
	f.items = runtime.ReconcileKeyed(f.items, len(list),
		func(i int) any { return (list)[i] },
		func(i int) runtime.Keyed {
			it := &rowsEach2Item{c: f.c, i: i}
			it.k = (list)[i]
			it.Create()
			return it
		},
		func(fr runtime.Keyed, i int) {
			it := fr.(*rowsEach2Item)
			it.i = i
			it.Patch([]uint32{^uint32(0)})
		},
		f.parent, f.mark)
}

func (f *rowsEach2) Detach() {
	for _, it := range f.items {
		it.Detach()
	}
	f.items = nil
	dom.Detach(f.mark)
}

type rowsEach2Item struct {
	c  *Rows
	e4 *dom.Element
	t5 *dom.Text
	i  int
	k  any
}

func (f *rowsEach2Item) Create() {
	f.e4 = dom.NewElement("li")
	f.t5 = dom.NewText(fmt.Sprint((f.c.Items)[f.i]))
	dom.Insert(f.e4, f.t5, nil)
}

func (f *rowsEach2Item) Mount(parent *dom.Element, anchor dom.Node) {
	dom.Insert(parent, f.e4, anchor)
}

func (f *rowsEach2Item) Patch(dirty []uint32) {
	if dirty[0]&0x1 != 0 {
		f.t5.SetData(fmt.Sprint((f.c.Items)[f.i]))
	}
}

func (f *rowsEach2Item) Detach() {
	dom.Detach(f.e4)
}

func (f *rowsEach2Item) Key() any {
	return f.k
}
