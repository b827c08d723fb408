package dom

import (
	"sort"
	"strings"
)

// Element is a tagged node with attributes, inline style, event handlers,
// and children.
type Element struct {
	tag      string
	attrs    map[string]string
	style    map[string]string
	handlers map[string][]*handlerEntry
	children []Node
	parent   *Element
}

// NewElement creates a detached element with the given tag.
func NewElement(tag string) *Element {
	return &Element{tag: tag}
}

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.tag }

func (e *Element) Parent() *Element     { return e.parent }
func (e *Element) setParent(p *Element) { e.parent = p }

// Children returns the element's children. The returned slice is shared;
// callers must not mutate it.
func (e *Element) Children() []Node {
	return e.children
}

// Attr returns the attribute value and whether it is set.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// SetAttr sets an attribute. Color-valued attributes are canonicalized
// (named colors become #rrggbb) so patches compare equal forms.
func (e *Element) SetAttr(name, value string) {
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	if isColorAttr(name) {
		if hex, ok := NormalizeColor(value); ok {
			value = hex
		}
	}
	e.attrs[name] = value
}

// RemoveAttr deletes an attribute.
func (e *Element) RemoveAttr(name string) {
	delete(e.attrs, name)
}

// SetStyle sets an inline style property, canonicalizing color values.
func (e *Element) SetStyle(prop, value string) {
	if e.style == nil {
		e.style = make(map[string]string)
	}
	if isColorProp(prop) {
		if hex, ok := NormalizeColor(value); ok {
			value = hex
		}
	}
	e.style[prop] = value
}

// Style returns an inline style property and whether it is set.
func (e *Element) Style(prop string) (string, bool) {
	v, ok := e.style[prop]
	return v, ok
}

// RemoveStyle deletes an inline style property.
func (e *Element) RemoveStyle(prop string) {
	delete(e.style, prop)
}

// Walk visits e and all descendants in document order. The visitor returns
// false to stop the walk.
func (e *Element) Walk(visit func(Node) bool) {
	var walk func(n Node) bool
	walk = func(n Node) bool {
		if !visit(n) {
			return false
		}
		if el, ok := n.(*Element); ok {
			for _, child := range el.children {
				if !walk(child) {
					return false
				}
			}
		}
		return true
	}
	walk(e)
}

// OuterHTML renders the element and its subtree as HTML-ish text.
// Attributes and style properties are emitted in sorted order so output is
// deterministic for snapshots.
func (e *Element) OuterHTML() string {
	var sb strings.Builder
	e.render(&sb)
	return sb.String()
}

func (e *Element) render(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(e.tag)

	names := make([]string, 0, len(e.attrs))
	for name := range e.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteByte(' ')
		sb.WriteString(name)
		sb.WriteString(`="`)
		sb.WriteString(escapeAttr(e.attrs[name]))
		sb.WriteByte('"')
	}

	if len(e.style) > 0 {
		props := make([]string, 0, len(e.style))
		for prop := range e.style {
			props = append(props, prop)
		}
		sort.Strings(props)
		sb.WriteString(` style="`)
		for i, prop := range props {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(prop)
			sb.WriteString(": ")
			sb.WriteString(escapeAttr(e.style[prop]))
		}
		sb.WriteByte('"')
	}

	sb.WriteByte('>')
	for _, child := range e.children {
		child.render(sb)
	}
	sb.WriteString("</")
	sb.WriteString(e.tag)
	sb.WriteByte('>')
}

func escapeAttr(s string) string {
	s = escapeText(s)
	return strings.ReplaceAll(s, `"`, "&quot;")
}
