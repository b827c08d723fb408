package compiler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateSrc(t *testing.T, file, src string) string {
	t.Helper()
	prog, err := Compile(file, []byte(src), Options{Package: "app"})
	require.NoError(t, err)
	return string(prog.Source)
}

func TestGenerateCounter(t *testing.T) {
	prog, err := CompileFile(filepath.Join("testdata", "counter.veld"), Options{Package: "app"})
	require.NoError(t, err)
	src := string(prog.Source)

	assert.Contains(t, src, "package app")
	assert.Contains(t, src, "type Counter struct {")
	assert.Contains(t, src, "runtime.Base")
	assert.Contains(t, src, "func NewCounter(sched *runtime.Scheduler, parent runtime.Component) *Counter")
	assert.Contains(t, src, `c.Init(sched, parent, c, "Counter", 2)`)

	// The event handler becomes a method with instrumented writes.
	assert.Contains(t, src, "func (c *Counter) increment()")
	assert.Contains(t, src, "c.count++")
	assert.Contains(t, src, "c.MarkDirtyMask(0, 0x1)")

	// Derived state recomputes inside Patch and extends the dirty mask.
	assert.Contains(t, src, "func (c *Counter) recompute(dirty []uint32) []uint32")
	assert.Contains(t, src, "c.doubled = c.count * 2")
	assert.Contains(t, src, "dirty[0] |= 0x2")

	// Template bits: text patching and the if-block helper.
	assert.Contains(t, src, "fmt.Sprint(c.count)")
	assert.Contains(t, src, "counterIf")
	assert.Contains(t, src, "runtime.DetachWithOutro(old)")
	assert.Contains(t, src, "runtime.CallHandler(c.increment, ev)")
}

func TestGenerateTodos(t *testing.T) {
	prog, err := CompileFile(filepath.Join("testdata", "todos.veld"), Options{Package: "app"})
	require.NoError(t, err)
	src := string(prog.Source)

	// Props get invalidating setters.
	assert.Contains(t, src, "func (c *Todos) SetTitle(v string)")
	assert.Contains(t, src, "c.MarkDirty(0)")

	// bind:value wires an input listener that writes back and invalidates.
	assert.Contains(t, src, "c.draft = ev.Value")
	assert.Contains(t, src, "c.MarkDirty(2)")

	// Keyed each-blocks reconcile by key. Each row fragment stores the key
	// it was created under so Key() survives list mutation.
	assert.Contains(t, src, "runtime.ReconcileKeyed(f.items, len(list)")
	assert.Contains(t, src, "(f.c.items)[f.i]")
	assert.Contains(t, src, "func(i int) any { return (list)[i] }")
	assert.Contains(t, src, "it.k = (list)[i]")
	assert.Contains(t, src, "return f.k")
}

func TestGenerateChildComponent(t *testing.T) {
	src := generateSrc(t, "page.veld", `<script>
var name string = "jo"
</script>
<Avatar User={name} Size="40"/>`)

	assert.Contains(t, src, "NewAvatar(c.Scheduler(), c)")
	assert.Contains(t, src, `.Size = "40"`)
	assert.Contains(t, src, ".User = c.name")
	assert.Contains(t, src, ".SetUser(c.name)")
	assert.Contains(t, src, "runtime.MountComponent(")
	assert.Contains(t, src, "runtime.DestroyComponent(")
}

func TestGenerateTransitions(t *testing.T) {
	src := generateSrc(t, "panel.veld", `<script>
import "time"
import "github.com/veld-ui/veld/pkg/transition"

var show bool = true

func toggle() {
	show = !show
}
</script>
<button on:click={toggle}>toggle</button>
{#if show}
	<div transition:fade={transition.Fade(200 * time.Millisecond)}>hi</div>
{/if}`)

	assert.Contains(t, src, "transition.Run(")
	assert.Contains(t, src, "transition.Intro, nil)")
	assert.Contains(t, src, "func (f *panelIf")
	assert.Contains(t, src, "Outro(done func()) bool")
	// The transition package is imported once, through the script block.
	assert.Equal(t, 1, countOccurrences(src, `"github.com/veld-ui/veld/pkg/transition"`))
}

func TestGenerateActions(t *testing.T) {
	src := generateSrc(t, "tip.veld", `<script>
import (
	"github.com/veld-ui/veld/pkg/action"
	"github.com/veld-ui/veld/pkg/dom"
)

var text string = "hello"

func tooltip(el *dom.Element, params any) action.Handle {
	el.SetAttr("title", params.(string))
	return action.Handle{}
}
</script>
<p use:tooltip={text}>hover me</p>`)

	assert.Contains(t, src, "action.Apply(&c.Base,")
	assert.Contains(t, src, "action.Action(c.tooltip)")
	assert.Contains(t, src, ".Update(c.text)")
}

func TestGenerateLifecycleHooks(t *testing.T) {
	src := generateSrc(t, "clock.veld", `<script>
var now string

func onMount() {
	now = "started"
}

func onDestroy() {
	now = ""
}
</script>
<p>{now}</p>`)

	assert.Contains(t, src, "c.OnMount(c.onMount)")
	assert.Contains(t, src, "c.OnDestroy(c.onDestroy)")
}

func TestGeneratePositionalEach(t *testing.T) {
	src := generateSrc(t, "list.veld", `<script>
var rows []string = nil
</script>
{#each rows as row}
	<p>{row}</p>
{/each}`)

	assert.Contains(t, src, "runtime.ReconcilePositional(f.items, len(list)")
	assert.Contains(t, src, "(f.c.rows)[f.i]")
	assert.NotContains(t, src, "ReconcileKeyed")
}

func TestGenerateNestedEachScopes(t *testing.T) {
	src := generateSrc(t, "grid.veld", `<script>
var grid [][]int = nil
</script>
{#each grid as row, r}
	{#each row as cell}
		<span>{cell}</span>
	{/each}
{/each}`)

	// The inner item reaches the outer row through its o pointer.
	assert.Contains(t, src, "(f.c.grid)[f.o.i]")
	assert.Contains(t, src, "o *gridEach")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("ui", "todo_item_veld.go"), OutputPath(filepath.Join("ui", "todo_item.veld")))
	assert.Equal(t, "app_veld.go", OutputPath("app.veld"))
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
