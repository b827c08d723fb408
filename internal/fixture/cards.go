package fixture

import (
	"fmt"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
)

// Cards is a keyed each-block whose row body carries a block at its top
// level, so moving a row must also move the nested block's content:
//
//	{#each Items as item (item)}{item}{#if Detail}<em>!</em>{/if}{/each}
type Cards struct {
	runtime.Base

	Items  []string
	Detail bool

	b2 *cardsEach1
}

func NewCards(sched *runtime.Scheduler, parent runtime.Component) *Cards {
	c := &Cards{}
	c.Items = nil
	c.Detail = false
	c.Init(sched, parent, c, "Cards", 2)
	return c
}

func (c *Cards) SetItems(v []string) {
	c.Items = v
	c.MarkDirty(0)
}

func (c *Cards) SetDetail(v bool) {
	c.Detail = v
	c.MarkDirty(1)
}

func (c *Cards) Create() {
	c.b2 = &cardsEach1{c: c}
	c.b2.Create()
}

func (c *Cards) Mount(parent *dom.Element, anchor dom.Node) {
	c.b2.Mount(parent, anchor)
}

func (c *Cards) Patch(dirty []uint32) {
	c.b2.Patch(dirty)
}

func (c *Cards) Detach() {
	c.b2.Detach()
}

type cardsEach1 struct {
	c      *Cards
	parent *dom.Element
	mark   *dom.Anchor
	items  []runtime.Keyed
}

func (f *cardsEach1) Create() {
	f.mark = dom.NewAnchor("each")
}

func (f *cardsEach1) Mount(parent *dom.Element, anchor dom.Node) {
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

func (f *cardsEach1) Patch(dirty []uint32) {
	if dirty[0]&0x1 != 0 {
		f.reconcile()
		return
	}
	for _, it := range f.items {
		it.Patch(dirty)
	}
}

func (f *cardsEach1) reconcile() {
	list := f.c.Items
	f.items = runtime.ReconcileKeyed(f.items, len(list),
		func(i int) any { return (list)[i] },
		func(i int) runtime.Keyed {
			it := &cardsEach1Item{c: f.c, i: i}
			it.k = (list)[i]
			it.Create()
			return it
		},
		func(fr runtime.Keyed, i int) {
			it := fr.(*cardsEach1Item)
			it.i = i
			it.Patch([]uint32{^uint32(0)})
		},
		f.parent, f.mark)
}

func (f *cardsEach1) Detach() {
	for _, it := range f.items {
		it.Detach()
	}
	f.items = nil
	dom.Detach(f.mark)
}

type cardsEach1Item struct {
	c  *Cards
	t3 *dom.Text
	b5 *cardsIf4
	i  int
	k  any
}

func (f *cardsEach1Item) Create() {
	f.t3 = dom.NewText(fmt.Sprint((f.c.Items)[f.i]))
	f.b5 = &cardsIf4{c: f.c, o: f}
	f.b5.Create()
}

func (f *cardsEach1Item) Mount(parent *dom.Element, anchor dom.Node) {
	dom.Insert(parent, f.t3, anchor)
	f.b5.Mount(parent, anchor)
}

func (f *cardsEach1Item) Patch(dirty []uint32) {
	if dirty[0]&0x1 != 0 {
		f.t3.SetData(fmt.Sprint((f.c.Items)[f.i]))
	}
	f.b5.Patch(dirty)
}

func (f *cardsEach1Item) Detach() {
	dom.Detach(f.t3)
	f.b5.Detach()
}

func (f *cardsEach1Item) Key() any {
	return f.k
}

type cardsIf4 struct {
	c      *Cards
	o      *cardsEach1Item
	parent *dom.Element
	mark   *dom.Anchor
	idx    int
	frag   runtime.Fragment
}

func (f *cardsIf4) Create() {
	f.mark = dom.NewAnchor("if")
	f.idx = -1
}

func (f *cardsIf4) Mount(parent *dom.Element, anchor dom.Node) {
	f.parent = parent
	dom.Insert(parent, f.mark, anchor)
	if f.frag != nil {
		f.frag.Mount(parent, f.mark)
		return
	}
	f.sync(nil)
}

func (f *cardsIf4) Patch(dirty []uint32) {
	if dirty[0]&0x2 != 0 {
		f.sync(dirty)
		return
	}
	if f.frag != nil {
		f.frag.Patch(dirty)
	}
}

func (f *cardsIf4) sync(dirty []uint32) {
	idx := -1
	switch {
	case f.c.Detail:
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
		f.frag = &cardsIf4b0{c: f.c, o: f.o}
	}
	if old != nil {
		runtime.DetachWithOutro(old)
	}
	if f.frag != nil {
		f.frag.Create()
		f.frag.Mount(f.parent, f.mark)
	}
}

func (f *cardsIf4) Detach() {
	if f.frag != nil {
		f.frag.Detach()
		f.frag = nil
		f.idx = -1
	}
	dom.Detach(f.mark)
}

type cardsIf4b0 struct {
	c  *Cards
	o  *cardsEach1Item
	e6 *dom.Element
}

func (f *cardsIf4b0) Create() {
	f.e6 = dom.NewElement("em")
	dom.Insert(f.e6, dom.NewText("!"), nil)
}

func (f *cardsIf4b0) Mount(parent *dom.Element, anchor dom.Node) {
	dom.Insert(parent, f.e6, anchor)
}

func (f *cardsIf4b0) Patch(dirty []uint32) {
}

func (f *cardsIf4b0) Detach() {
	dom.Detach(f.e6)
}
