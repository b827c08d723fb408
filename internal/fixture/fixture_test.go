package fixture

import (
	"strings"
	"testing"
	"time"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/veldtest"
)

func textOf(n dom.Node) string {
	el, ok := n.(*dom.Element)
	if !ok {
		if t, isText := n.(*dom.Text); isText {
			return t.Data()
		}
		return ""
	}
	var sb strings.Builder
	el.Walk(func(n dom.Node) bool {
		if t, isText := n.(*dom.Text); isText {
			sb.WriteString(t.Data())
		}
		return true
	})
	return sb.String()
}

func TestKeyedRemovalKeepsSurvivors(t *testing.T) {
	h := veldtest.NewWithT(t)
	c := NewRows(h.Scheduler(), nil)
	c.Items = []string{"a", "b"}
	h.Mount(c)

	if got := h.Find(veldtest.ByTag("li")).Count(); got != 2 {
		t.Fatalf("li count = %d, want 2", got)
	}
	survivor := h.Find(veldtest.ByTag("li")).At(1)

	c.SetItems([]string{"b"})
	h.Flush()

	lis := h.Find(veldtest.ByTag("li"))
	if lis.Count() != 1 {
		t.Fatalf("li count after removal = %d, want 1", lis.Count())
	}
	if got := textOf(lis.At(0)); got != "b" {
		t.Errorf("remaining row text = %q, want %q", got, "b")
	}
	if lis.At(0) != survivor {
		t.Error("surviving row was rebuilt instead of reused by key")
	}
}

func TestKeyedReorderMovesRows(t *testing.T) {
	h := veldtest.NewWithT(t)
	c := NewRows(h.Scheduler(), nil)
	c.Items = []string{"a", "b", "c"}
	h.Mount(c)

	before := make(map[string]dom.Node)
	for _, n := range h.Find(veldtest.ByTag("li")).All() {
		before[textOf(n)] = n
	}

	c.SetItems([]string{"c", "a", "b"})
	h.Flush()

	lis := h.Find(veldtest.ByTag("li")).All()
	want := []string{"c", "a", "b"}
	if len(lis) != len(want) {
		t.Fatalf("li count after reorder = %d, want %d", len(lis), len(want))
	}
	for i, n := range lis {
		if got := textOf(n); got != want[i] {
			t.Errorf("row %d text = %q, want %q", i, got, want[i])
		}
		if n != before[want[i]] {
			t.Errorf("row %q was rebuilt instead of moved", want[i])
		}
	}
}

func TestKeyedReorderMovesNestedBlocks(t *testing.T) {
	h := veldtest.NewWithT(t)
	c := NewCards(h.Scheduler(), nil)
	c.Items = []string{"a", "b"}
	c.Detail = true
	h.Mount(c)

	want := "<body>a<em>!</em><!--if-->b<em>!</em><!--if--><!--each--></body>"
	if got := h.HTML(); got != want {
		t.Fatalf("html = %s, want %s", got, want)
	}

	c.SetItems([]string{"b", "a"})
	h.Flush()

	want = "<body>b<em>!</em><!--if-->a<em>!</em><!--if--><!--each--></body>"
	if got := h.HTML(); got != want {
		t.Errorf("html after reorder = %s, want %s", got, want)
	}
}

func TestPatchOnlyTouchesDirtyBits(t *testing.T) {
	h := veldtest.NewWithT(t)
	c := NewStats(h.Scheduler(), nil)
	h.Mount(c)

	// A write that is never marked dirty must not reach the tree through an
	// unrelated invalidation.
	c.B = "stale"
	c.SetA("a1")
	h.Flush()

	spans := h.Find(veldtest.ByTag("span"))
	if got := textOf(spans.At(0)); got != "a1" {
		t.Errorf("first span = %q, want %q", got, "a1")
	}
	if got := textOf(spans.At(1)); got != "b0" {
		t.Errorf("second span = %q, want %q (bit 1 was never dirty)", got, "b0")
	}

	c.SetB("b1")
	h.Flush()
	if got := textOf(h.Find(veldtest.ByTag("span")).At(1)); got != "b1" {
		t.Errorf("second span after SetB = %q, want %q", got, "b1")
	}
}

func TestOutroDelaysRemoval(t *testing.T) {
	h := veldtest.NewWithT(t)
	c := NewToggle(h.Scheduler(), nil)
	h.Mount(c)
	if err := h.FlushUntilSettled(time.Second); err != nil {
		t.Fatal(err)
	}
	if !h.Find(veldtest.ByTag("p")).Exists() {
		t.Fatal("content missing after mount")
	}

	c.SetShow(false)
	h.Flush()
	if !h.Find(veldtest.ByTag("p")).Exists() {
		t.Fatal("content removed before the exit transition finished")
	}

	if err := h.FlushUntilSettled(time.Second); err != nil {
		t.Fatal(err)
	}
	if h.Find(veldtest.ByTag("p")).Exists() {
		t.Error("content not removed after the exit transition")
	}
}
