package runtime

import (
	"testing"

	"github.com/veld-ui/veld/pkg/dom"
)

func TestMountRunsMountHooks(t *testing.T) {
	sched := NewScheduler()
	c := newFakeComponent(sched, nil, 0)

	mounted := false
	c.OnMount(func() { mounted = true })

	if mounted {
		t.Fatal("mount hooks must not run before MountComponent")
	}
	MountComponent(c, dom.NewElement("body"), nil)
	if !mounted {
		t.Error("mount hook should run after mounting")
	}
	if !c.Mounted() {
		t.Error("component should report mounted")
	}
}

func TestDestroyRunsDisposersInReverseOrder(t *testing.T) {
	sched := NewScheduler()
	c := newFakeComponent(sched, nil, 0)
	MountComponent(c, dom.NewElement("body"), nil)

	var order []string
	c.OnDestroy(func() { order = append(order, "first") })
	c.OnDestroy(func() { order = append(order, "second") })

	DestroyComponent(c)

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("disposer order = %v, want LIFO", order)
	}
}

func TestOnDestroyAfterDestroyRunsImmediately(t *testing.T) {
	sched := NewScheduler()
	c := newFakeComponent(sched, nil, 0)
	MountComponent(c, dom.NewElement("body"), nil)
	DestroyComponent(c)

	ran := false
	c.OnDestroy(func() { ran = true })

	if !ran {
		t.Error("disposer registered after destroy should run immediately")
	}
}

func TestDestroyTearsDownChildrenFirst(t *testing.T) {
	sched := NewScheduler()
	parent := newFakeComponent(sched, nil, 0)
	child := newFakeComponent(sched, parent, 0)
	body := dom.NewElement("body")
	MountComponent(parent, body, nil)
	MountComponent(child, body, nil)

	var order []string
	parent.OnDestroy(func() { order = append(order, "parent") })
	child.OnDestroy(func() { order = append(order, "child") })

	DestroyComponent(parent)

	if len(order) != 2 || order[0] != "child" || order[1] != "parent" {
		t.Errorf("teardown order = %v, want children first", order)
	}
	if child.Mounted() {
		t.Error("child should be unmounted with its parent")
	}
}

func TestRootRegistration(t *testing.T) {
	sched := NewScheduler()
	root := newFakeComponent(sched, nil, 0)
	child := newFakeComponent(sched, root, 0)
	body := dom.NewElement("body")
	MountComponent(root, body, nil)
	MountComponent(child, body, nil)

	roots := sched.Roots()
	if len(roots) != 1 || roots[0] != Component(root) {
		t.Fatalf("roots = %v, want just the root instance", roots)
	}
	if len(root.Children()) != 1 {
		t.Errorf("root has %d children, want 1", len(root.Children()))
	}

	DestroyComponent(root)
	if len(sched.Roots()) != 0 {
		t.Error("destroyed root should be unregistered")
	}
}

func TestDepthFollowsParentChain(t *testing.T) {
	sched := NewScheduler()
	root := newFakeComponent(sched, nil, 0)
	child := newFakeComponent(sched, root, 0)
	grandchild := newFakeComponent(sched, child, 0)

	if root.Depth() != 0 || child.Depth() != 1 || grandchild.Depth() != 2 {
		t.Errorf("depths = %d,%d,%d, want 0,1,2",
			root.Depth(), child.Depth(), grandchild.Depth())
	}
}

func TestContextResolvesThroughAncestors(t *testing.T) {
	sched := NewScheduler()
	root := newFakeComponent(sched, nil, 0)
	child := newFakeComponent(sched, root, 0)
	grandchild := newFakeComponent(sched, child, 0)

	type themeKey struct{}
	root.SetContext(themeKey{}, "dark")
	child.SetContext(themeKey{}, "light") // nearest wins

	v, ok := grandchild.Context(themeKey{})
	if !ok || v != "light" {
		t.Errorf("Context = %v, %v; want light, true", v, ok)
	}

	v, ok = root.Context(themeKey{})
	if !ok || v != "dark" {
		t.Errorf("Context at root = %v, %v; want dark, true", v, ok)
	}

	_, ok = grandchild.Context("missing")
	if ok {
		t.Error("unknown key should not resolve")
	}
}

func TestAutoSubscribeUnsubscribesOnDestroy(t *testing.T) {
	sched := NewScheduler()
	c := newFakeComponent(sched, nil, 0)
	MountComponent(c, dom.NewElement("body"), nil)

	unsubscribed := false
	c.AutoSubscribe(func() func() {
		return func() { unsubscribed = true }
	})

	DestroyComponent(c)

	if !unsubscribed {
		t.Error("AutoSubscribe must unsubscribe on destroy")
	}
}

func TestInstanceIDsAreUnique(t *testing.T) {
	sched := NewScheduler()
	a := newFakeComponent(sched, nil, 0)
	b := newFakeComponent(sched, nil, 0)

	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("instance ids %q and %q should be unique and non-empty", a.ID(), b.ID())
	}
}
