package fixture

import (
	"fmt"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
)

// Stats renders two independent state variables:
//
//	<span>{A}</span><span>{B}</span>
type Stats struct {
	runtime.Base

	A string
	B string

	e1 *dom.Element
	t2 *dom.Text
	e3 *dom.Element
	t4 *dom.Text
}

func NewStats(sched *runtime.Scheduler, parent runtime.Component) *Stats {
	c := &Stats{}
	c.A = "a0"
	c.B = "b0"
	c.Init(sched, parent, c, "Stats", 2)
	return c
}

func (c *Stats) SetA(v string) {
	c.A = v
	c.MarkDirty(0)
}

func (c *Stats) SetB(v string) {
	c.B = v
	c.MarkDirty(1)
}

func (c *Stats) Create() {
	c.e1 = dom.NewElement("span")
	c.t2 = dom.NewText(fmt.Sprint(c.A))
	dom.Insert(c.e1, c.t2, nil)
	c.e3 = dom.NewElement("span")
	c.t4 = dom.NewText(fmt.Sprint(c.B))
	dom.Insert(c.e3, c.t4, nil)
}

func (c *Stats) Mount(parent *dom.Element, anchor dom.Node) {
	dom.Insert(parent, c.e1, anchor)
	dom.Insert(parent, c.e3, anchor)
}

func (c *Stats) Patch(dirty []uint32) {
	if dirty[0]&0x1 != 0 {
		c.t2.SetData(fmt.Sprint(c.A))
	}
	if dirty[0]&0x2 != 0 {
		c.t4.SetData(fmt.Sprint(c.B))
	}
}

func (c *Stats) Detach() {
	dom.Detach(c.e1)
	dom.Detach(c.e3)
}
