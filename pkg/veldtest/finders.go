package veldtest

import (
	"fmt"
	"strings"

	"github.com/veld-ui/veld/pkg/dom"
)

// Finder locates nodes in the document.
type Finder interface {
	// Evaluate returns all matching nodes under root in document order.
	Evaluate(root *dom.Element) []dom.Node
	// Description returns a human-readable description for error messages.
	Description() string
}

// Result wraps finder matches with convenient accessors.
type Result struct {
	nodes  []dom.Node
	finder Finder
}

// First returns the first match. Panics if there are none.
func (r Result) First() dom.Node {
	if len(r.nodes) == 0 {
		panic(fmt.Sprintf("finder found no nodes: %s", r.describe()))
	}
	return r.nodes[0]
}

// FirstElement returns the first match as an element. Panics if there are
// no matches or the first match is not an element.
func (r Result) FirstElement() *dom.Element {
	el, ok := r.First().(*dom.Element)
	if !ok {
		panic(fmt.Sprintf("first match is not an element: %s", r.describe()))
	}
	return el
}

// At returns the match at index. Panics if out of range.
func (r Result) At(index int) dom.Node {
	if index < 0 || index >= len(r.nodes) {
		panic(fmt.Sprintf("finder index %d out of range (found %d): %s", index, len(r.nodes), r.describe()))
	}
	return r.nodes[index]
}

// All returns all matches in document order.
func (r Result) All() []dom.Node { return r.nodes }

// Count returns the number of matches.
func (r Result) Count() int { return len(r.nodes) }

// Exists reports whether at least one node matched.
func (r Result) Exists() bool { return len(r.nodes) > 0 }

// Text returns the concatenated text content of the first match.
func (r Result) Text() string {
	var sb strings.Builder
	n := r.First()
	el, ok := n.(*dom.Element)
	if !ok {
		if t, isText := n.(*dom.Text); isText {
			return t.Data()
		}
		return ""
	}
	el.Walk(func(n dom.Node) bool {
		if t, isText := n.(*dom.Text); isText {
			sb.WriteString(t.Data())
		}
		return true
	})
	return sb.String()
}

func (r Result) describe() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// collectMatches walks root gathering nodes the predicate accepts.
func collectMatches(root *dom.Element, match func(dom.Node) bool) []dom.Node {
	var out []dom.Node
	root.Walk(func(n dom.Node) bool {
		if match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

type tagFinder struct {
	tag string
}

func (f *tagFinder) Evaluate(root *dom.Element) []dom.Node {
	return collectMatches(root, func(n dom.Node) bool {
		el, ok := n.(*dom.Element)
		return ok && el.Tag() == f.tag
	})
}

func (f *tagFinder) Description() string {
	return fmt.Sprintf("ByTag(%s)", f.tag)
}

// ByTag matches elements with the given tag name.
func ByTag(tag string) Finder {
	return &tagFinder{tag: tag}
}

type textFinder struct {
	substr string
}

func (f *textFinder) Evaluate(root *dom.Element) []dom.Node {
	return collectMatches(root, func(n dom.Node) bool {
		t, ok := n.(*dom.Text)
		return ok && strings.Contains(t.Data(), f.substr)
	})
}

func (f *textFinder) Description() string {
	return fmt.Sprintf("ByText(%q)", f.substr)
}

// ByText matches text nodes containing substr.
func ByText(substr string) Finder {
	return &textFinder{substr: substr}
}

type attrFinder struct {
	name  string
	value string
}

func (f *attrFinder) Evaluate(root *dom.Element) []dom.Node {
	return collectMatches(root, func(n dom.Node) bool {
		el, ok := n.(*dom.Element)
		if !ok {
			return false
		}
		v, set := el.Attr(f.name)
		return set && v == f.value
	})
}

func (f *attrFinder) Description() string {
	return fmt.Sprintf("ByAttr(%s=%q)", f.name, f.value)
}

// ByAttr matches elements carrying the attribute with the exact value.
func ByAttr(name, value string) Finder {
	return &attrFinder{name: name, value: value}
}
