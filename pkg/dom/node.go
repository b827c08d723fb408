// Package dom implements the retained node tree that compiled components
// render into.
//
// The tree is deliberately small: elements, text nodes, and anchors.
// Anchors are placeholder nodes that mark block boundaries (if/each) so
// generated code can insert and remove fragments without re-rendering
// siblings. A host embedder mirrors this tree into a real display surface;
// tests and the inspector read it directly.
//
// The tree is not safe for concurrent mutation. All writes must happen on
// the scheduler goroutine, matching the framework's threading model.
package dom

import "strings"

// Node is a member of the retained tree.
type Node interface {
	// Parent returns the containing element, or nil for a detached node.
	Parent() *Element

	setParent(p *Element)
	render(sb *strings.Builder)
}

// Text is a text node.
type Text struct {
	data   string
	parent *Element
}

// NewText creates a detached text node.
func NewText(data string) *Text {
	return &Text{data: data}
}

// Data returns the node's text content.
func (t *Text) Data() string {
	return t.data
}

// SetData replaces the node's text content.
func (t *Text) SetData(data string) {
	t.data = data
}

func (t *Text) Parent() *Element     { return t.parent }
func (t *Text) setParent(p *Element) { t.parent = p }

func (t *Text) render(sb *strings.Builder) {
	sb.WriteString(escapeText(t.data))
}

// Anchor is an invisible placeholder marking a fragment boundary.
// It renders as a comment so snapshots show block structure.
type Anchor struct {
	label  string
	parent *Element
}

// NewAnchor creates a detached anchor with a label used in snapshots.
func NewAnchor(label string) *Anchor {
	return &Anchor{label: label}
}

// Label returns the anchor's label.
func (a *Anchor) Label() string { return a.label }

func (a *Anchor) Parent() *Element     { return a.parent }
func (a *Anchor) setParent(p *Element) { a.parent = p }

func (a *Anchor) render(sb *strings.Builder) {
	sb.WriteString("<!--")
	sb.WriteString(a.label)
	sb.WriteString("-->")
}

// Insert places node into parent immediately before ref. A nil ref appends.
// The node is detached from any previous parent first.
func Insert(parent *Element, node Node, ref Node) {
	if parent == nil || node == nil {
		return
	}
	Detach(node)
	node.setParent(parent)
	if ref == nil {
		parent.children = append(parent.children, node)
		return
	}
	for i, child := range parent.children {
		if child == ref {
			parent.children = append(parent.children[:i], append([]Node{node}, parent.children[i:]...)...)
			return
		}
	}
	parent.children = append(parent.children, node)
}

// Detach removes node from its parent, if any.
func Detach(node Node) {
	if node == nil {
		return
	}
	parent := node.Parent()
	if parent == nil {
		return
	}
	for i, child := range parent.children {
		if child == node {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	node.setParent(nil)
}

func escapeText(s string) string {
	if !strings.ContainsAny(s, "&<>") {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
