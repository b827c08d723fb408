package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFile(t *testing.T, name string) *Component {
	t.Helper()
	path := filepath.Join("testdata", name)
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	component, err := Parse(path, src)
	require.NoError(t, err)
	return component
}

func TestParseCounter(t *testing.T) {
	c := parseFile(t, "counter.veld")

	assert.Equal(t, "Counter", c.Name)
	assert.Contains(t, c.Script, "func increment()")
	require.Len(t, c.Fragment, 2)

	button, ok := c.Fragment[0].(*ElementNode)
	require.True(t, ok)
	assert.Equal(t, "button", button.Tag)
	assert.False(t, button.IsComponent())
	require.Len(t, button.Events, 1)
	assert.Equal(t, "click", button.Events[0].Event)
	assert.Equal(t, "increment", button.Events[0].Expr)

	require.Len(t, button.Children, 3)
	assert.Equal(t, "clicked ", button.Children[0].(*TextNode).Text)
	assert.Equal(t, "count", button.Children[1].(*MustacheTag).Expr)
	assert.Equal(t, " times", button.Children[2].(*TextNode).Text)

	ifBlock, ok := c.Fragment[1].(*IfBlock)
	require.True(t, ok)
	require.Len(t, ifBlock.Branches, 1)
	assert.Equal(t, "doubled > 4", ifBlock.Branches[0].Cond)
	assert.Nil(t, ifBlock.Else)
}

func TestParseEachHeader(t *testing.T) {
	c := parseFile(t, "todos.veld")

	var each *EachBlock
	for _, node := range c.Fragment {
		el, ok := node.(*ElementNode)
		if !ok || el.Tag != "ul" {
			continue
		}
		require.Len(t, el.Children, 1)
		each = el.Children[0].(*EachBlock)
	}
	require.NotNil(t, each)
	assert.Equal(t, "items", each.Expr)
	assert.Equal(t, "item", each.Item)
	assert.Equal(t, "i", each.Index)
	assert.Equal(t, "item", each.Key)
}

func TestParseBinding(t *testing.T) {
	c := parseFile(t, "todos.veld")

	input, ok := c.Fragment[1].(*ElementNode)
	require.True(t, ok)
	assert.Equal(t, "input", input.Tag)
	assert.True(t, input.SelfClosed)
	require.Len(t, input.Bindings, 1)
	assert.Equal(t, "value", input.Bindings[0].Property)
	assert.Equal(t, "draft", input.Bindings[0].Var)
}

func TestParseComponentTag(t *testing.T) {
	c, err := Parse("page.veld", []byte(`<Avatar User="jo" Large/>`))
	require.NoError(t, err)
	require.Len(t, c.Fragment, 1)

	el := c.Fragment[0].(*ElementNode)
	assert.True(t, el.IsComponent())
	require.Len(t, el.Attributes, 2)
	assert.Equal(t, AttrStatic, el.Attributes[0].Kind)
	assert.Equal(t, AttrBool, el.Attributes[1].Kind)
}

func TestParseVoidTag(t *testing.T) {
	c, err := Parse("x.veld", []byte(`<p>a<br>b</p>`))
	require.NoError(t, err)

	p := c.Fragment[0].(*ElementNode)
	require.Len(t, p.Children, 3)
	br := p.Children[1].(*ElementNode)
	assert.Equal(t, "br", br.Tag)
	assert.True(t, br.SelfClosed)
}

func TestParseElseIfChain(t *testing.T) {
	src := `{#if a > 1}<p>x</p>{:else if a > 0}<p>y</p>{:else}<p>z</p>{/if}`
	c, err := Parse("x.veld", []byte(src))
	require.NoError(t, err)

	ifBlock := c.Fragment[0].(*IfBlock)
	require.Len(t, ifBlock.Branches, 2)
	assert.Equal(t, "a > 1", ifBlock.Branches[0].Cond)
	assert.Equal(t, "a > 0", ifBlock.Branches[1].Cond)
	require.Len(t, ifBlock.Else, 1)
}

func TestParseMustacheBalancesBraces(t *testing.T) {
	c, err := Parse("x.veld", []byte(`<p>{fmt.Sprintf("%d}", map[string]int{"a": 1}["a"])}</p>`))
	require.NoError(t, err)

	p := c.Fragment[0].(*ElementNode)
	tag := p.Children[0].(*MustacheTag)
	assert.Equal(t, `fmt.Sprintf("%d}", map[string]int{"a": 1}["a"])`, tag.Expr)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"unclosed tag", `<div><p>x</div>`, "closing tag"},
		{"never closed", `<div>`, "not closed"},
		{"unknown block", `{#while x}{/while}`, "unknown block"},
		{"else not final", `{#if a}{:else}<p>x</p>{:else if b}{/if}`, "final branch"},
		{"handler missing", `<button on:click>x</button>`, "handler expression"},
		{"bad bind target", `<input bind:class={x}/>`, "cannot bind"},
		{"bind needs ident", `<input bind:value={x + 1}/>`, "state variable"},
		{"each keyword", `{#each items item}{/each}`, "as"},
		{"nested script", `<div><script>var x int</script></div>`, "top level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("x.veld", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
