package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/veld-ui/veld/pkg/errors"
)

// voidTags never take children, with or without a closing slash.
var voidTags = map[string]bool{
	"area": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// Parse reads one component file into its AST. The component name is
// derived from the file name: "todo_list.veld" becomes "TodoList".
func Parse(file string, src []byte) (*Component, error) {
	name, err := componentName(file)
	if err != nil {
		return nil, err
	}

	p := &templateParser{cur: newCursor(file, string(src))}
	component := &Component{Name: name, File: file}

	nodes, err := p.parseNodes(component, "")
	if err != nil {
		return nil, err
	}
	if !p.cur.eof() {
		return nil, p.cur.errorf("unexpected %q outside any block", string(p.cur.peek()))
	}
	component.Fragment = nodes
	return component, nil
}

// componentName maps a file name to an exported Go type name.
func componentName(file string) (string, error) {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return "", &errors.CompileError{File: file, Kind: errors.KindParse, Msg: "empty component name"}
	}

	title := cases.Title(language.Und, cases.NoLower)
	var sb strings.Builder
	for _, part := range strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	}) {
		sb.WriteString(title.String(part))
	}
	name := sb.String()
	if name == "" || !isAlpha(name[0]) {
		return "", &errors.CompileError{
			File: file, Kind: errors.KindParse,
			Msg: fmt.Sprintf("cannot derive a Go type name from %q", base),
		}
	}
	return name, nil
}

type templateParser struct {
	cur *cursor
}

// parseNodes reads children until EOF, a closing tag, or a block
// continuation ({:else}, {/if}, {/each}). closing names the open tag for
// diagnostics; "" means top level.
func (p *templateParser) parseNodes(component *Component, closing string) ([]Node, error) {
	var nodes []Node
	for !p.cur.eof() {
		if p.cur.at("</") || p.cur.at("{:") || p.cur.at("{/") {
			return nodes, nil
		}

		switch {
		case p.cur.at("<!--"):
			if err := p.skipComment(); err != nil {
				return nil, err
			}

		case p.cur.at("<script>") || p.cur.at("<script "):
			if closing != "" {
				return nil, p.cur.errorf("script block must be at the top level")
			}
			if err := p.parseScript(component); err != nil {
				return nil, err
			}

		case p.cur.at("{#if"):
			node, err := p.parseIf(component)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		case p.cur.at("{#each"):
			node, err := p.parseEach(component)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		case p.cur.at("{#"):
			return nil, p.cur.errorf("unknown block; expected {#if} or {#each}")

		case p.cur.peek() == '{':
			pos := p.cur.pos()
			expr, _, err := p.cur.readExpr()
			if err != nil {
				return nil, err
			}
			if expr == "" {
				return nil, errAt(p.cur.file, pos, "empty expression")
			}
			nodes = append(nodes, &MustacheTag{Position: pos, Expr: expr})

		case p.cur.peek() == '<':
			node, err := p.parseElement(component)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		default:
			node := p.parseText()
			if node != nil {
				nodes = append(nodes, node)
			}
		}
	}

	if closing != "" {
		return nil, p.cur.errorf("unexpected end of input; <%s> is not closed", closing)
	}
	return nodes, nil
}

func (p *templateParser) skipComment() error {
	start := p.cur.pos()
	p.cur.advance(4)
	for !p.cur.eof() && !p.cur.at("-->") {
		p.cur.advance(1)
	}
	if p.cur.eof() {
		return errAt(p.cur.file, start, "unterminated comment")
	}
	p.cur.advance(3)
	return nil
}

func (p *templateParser) parseScript(component *Component) error {
	if component.Script != "" {
		return p.cur.errorf("duplicate script block")
	}
	// Consume through '>'.
	for !p.cur.eof() && p.cur.peek() != '>' {
		p.cur.advance(1)
	}
	if p.cur.eof() {
		return p.cur.errorf("malformed script tag")
	}
	p.cur.advance(1)

	component.ScriptPos = p.cur.pos()
	end := strings.Index(p.cur.src[p.cur.off:], "</script>")
	if end < 0 {
		return p.cur.errorf("script block is not closed")
	}
	component.Script = p.cur.src[p.cur.off : p.cur.off+end]
	p.cur.advance(end + len("</script>"))
	return nil
}

// parseText reads literal text up to the next tag or mustache. Runs of
// whitespace that contain a newline and nothing else are formatting, not
// content, and are dropped.
func (p *templateParser) parseText() Node {
	pos := p.cur.pos()
	text := p.cur.readUntil("<{")
	if strings.TrimSpace(text) == "" && strings.Contains(text, "\n") {
		return nil
	}
	return &TextNode{Position: pos, Text: text}
}

func (p *templateParser) parseElement(component *Component) (Node, error) {
	pos := p.cur.pos()
	p.cur.advance(1) // '<'

	tag := p.cur.readIdent("-")
	if tag == "" {
		return nil, errAt(p.cur.file, pos, "expected tag name after '<'")
	}
	node := &ElementNode{Position: pos, Tag: tag}

	for {
		p.cur.skipSpace()
		if p.cur.eof() {
			return nil, errAt(p.cur.file, pos, fmt.Sprintf("<%s> is never closed", tag))
		}
		if p.cur.at("/>") {
			p.cur.advance(2)
			node.SelfClosed = true
			return node, nil
		}
		if p.cur.peek() == '>' {
			p.cur.advance(1)
			break
		}
		if err := p.parseAttribute(node); err != nil {
			return nil, err
		}
	}

	if voidTags[tag] {
		node.SelfClosed = true
		return node, nil
	}

	children, err := p.parseNodes(component, tag)
	if err != nil {
		return nil, err
	}
	node.Children = children

	if !p.cur.at("</") {
		return nil, p.cur.errorf("<%s> is never closed", tag)
	}
	p.cur.advance(2)
	closeTag := p.cur.readIdent("-")
	p.cur.skipSpace()
	if p.cur.peek() != '>' {
		return nil, p.cur.errorf("malformed closing tag")
	}
	p.cur.advance(1)
	if closeTag != tag {
		return nil, p.cur.errorf("mismatched closing tag: expected </%s>, found </%s>", tag, closeTag)
	}
	return node, nil
}

func (p *templateParser) parseAttribute(node *ElementNode) error {
	pos := p.cur.pos()
	name := p.cur.readIdent(":-.")
	if name == "" {
		return p.cur.errorf("expected attribute name in <%s>", node.Tag)
	}

	var value string
	kind := AttrBool
	if p.cur.peek() == '=' {
		p.cur.advance(1)
		switch p.cur.peek() {
		case '"':
			start := p.cur.pos()
			p.cur.advance(1)
			value = p.cur.readUntil("\"")
			if p.cur.eof() {
				return errAt(p.cur.file, start, "unterminated attribute value")
			}
			p.cur.advance(1)
			kind = AttrStatic
		case '{':
			expr, _, err := p.cur.readExpr()
			if err != nil {
				return err
			}
			value = expr
			kind = AttrDynamic
		default:
			return p.cur.errorf("attribute %s needs a quoted or braced value", name)
		}
	}

	directive, arg, hasDirective := strings.Cut(name, ":")
	if !hasDirective {
		node.Attributes = append(node.Attributes, Attribute{Position: pos, Name: name, Kind: kind, Value: value})
		return nil
	}

	switch directive {
	case "on":
		if kind != AttrDynamic || value == "" {
			return errAt(p.cur.file, pos, fmt.Sprintf("on:%s needs a handler expression", arg))
		}
		node.Events = append(node.Events, EventHandler{Position: pos, Event: arg, Expr: value})
	case "bind":
		if arg != "value" && arg != "checked" {
			return errAt(p.cur.file, pos, fmt.Sprintf("cannot bind property %q; supported: value, checked", arg))
		}
		if kind != AttrDynamic || !isIdentifier(value) {
			return errAt(p.cur.file, pos, fmt.Sprintf("bind:%s needs a state variable", arg))
		}
		node.Bindings = append(node.Bindings, BindingDirective{Position: pos, Property: arg, Var: value})
	case "use":
		if arg == "" {
			return errAt(p.cur.file, pos, "use: needs an action name")
		}
		node.Actions = append(node.Actions, ActionDirective{Position: pos, Name: arg, Params: value})
	case "transition", "in", "out":
		if kind != AttrDynamic || value == "" {
			return errAt(p.cur.file, pos, fmt.Sprintf("%s:%s needs a spec expression", directive, arg))
		}
		phase := PhaseBoth
		if directive == "in" {
			phase = PhaseIn
		} else if directive == "out" {
			phase = PhaseOut
		}
		node.Transitions = append(node.Transitions, TransitionDirective{
			Position: pos, Phase: phase, Name: arg, Spec: value,
		})
	default:
		// Namespaced plain attributes (xlink:href) pass through.
		node.Attributes = append(node.Attributes, Attribute{Position: pos, Name: name, Kind: kind, Value: value})
	}
	return nil
}

func (p *templateParser) parseIf(component *Component) (Node, error) {
	pos := p.cur.pos()
	p.cur.advance(1) // '{'
	p.cur.advance(len("#if"))
	p.cur.skipSpace()

	cond, err := p.readBlockExpr(pos)
	if err != nil {
		return nil, err
	}
	if cond == "" {
		return nil, errAt(p.cur.file, pos, "{#if} needs a condition")
	}

	block := &IfBlock{Position: pos}
	branchPos := pos

	for {
		body, err := p.parseNodes(component, "{#if}")
		if err != nil {
			return nil, err
		}
		block.Branches = append(block.Branches, IfBranch{Position: branchPos, Cond: cond, Body: body})

		switch {
		case p.cur.at("{/if}"):
			p.cur.advance(len("{/if}"))
			return block, nil

		case p.cur.at("{:else"):
			branchPos = p.cur.pos()
			p.cur.advance(len("{:else"))
			p.cur.skipSpace()
			if p.cur.peek() == '}' {
				p.cur.advance(1)
				elseBody, err := p.parseNodes(component, "{:else}")
				if err != nil {
					return nil, err
				}
				block.Else = elseBody
				if elseBody == nil {
					block.Else = []Node{}
				}
				if !p.cur.at("{/if}") {
					return nil, p.cur.errorf("{:else} must be the final branch")
				}
				p.cur.advance(len("{/if}"))
				return block, nil
			}
			if !p.cur.at("if") {
				return nil, p.cur.errorf("expected {:else} or {:else if}")
			}
			p.cur.advance(2)
			p.cur.skipSpace()
			cond, err = p.readBlockExpr(branchPos)
			if err != nil {
				return nil, err
			}
			if cond == "" {
				return nil, errAt(p.cur.file, branchPos, "{:else if} needs a condition")
			}

		default:
			return nil, p.cur.errorf("{#if} is not closed")
		}
	}
}

func (p *templateParser) parseEach(component *Component) (Node, error) {
	pos := p.cur.pos()
	p.cur.advance(1) // '{'
	p.cur.advance(len("#each"))
	p.cur.skipSpace()

	header, err := p.readBlockExpr(pos)
	if err != nil {
		return nil, err
	}

	block, err := parseEachHeader(p.cur.file, pos, header)
	if err != nil {
		return nil, err
	}

	body, err := p.parseNodes(component, "{#each}")
	if err != nil {
		return nil, err
	}
	block.Body = body

	if !p.cur.at("{/each}") {
		return nil, p.cur.errorf("{#each} is not closed")
	}
	p.cur.advance(len("{/each}"))
	return block, nil
}

// readBlockExpr consumes the remainder of a block header up to its
// balanced closing '}'.
func (p *templateParser) readBlockExpr(open Position) (string, error) {
	start := p.cur.off
	depth := 1
	for !p.cur.eof() {
		switch b := p.cur.peek(); b {
		case '{':
			depth++
			p.cur.advance(1)
		case '}':
			depth--
			if depth == 0 {
				expr := strings.TrimSpace(p.cur.src[start:p.cur.off])
				p.cur.advance(1)
				return expr, nil
			}
			p.cur.advance(1)
		case '"', '\'':
			if err := p.cur.skipQuoted(b); err != nil {
				return "", err
			}
		case '`':
			p.cur.advance(1)
			for !p.cur.eof() && p.cur.peek() != '`' {
				p.cur.advance(1)
			}
			p.cur.advance(1)
		default:
			p.cur.advance(1)
		}
	}
	return "", errAt(p.cur.file, open, "unbalanced block header")
}

// parseEachHeader splits "expr as item[, index] [(key)]".
func parseEachHeader(file string, pos Position, header string) (*EachBlock, error) {
	exprPart, tail, found := cutTopLevel(header, " as ")
	if !found {
		return nil, errAt(file, pos, "{#each} needs the form {#each expr as item}")
	}

	block := &EachBlock{Position: pos, Expr: strings.TrimSpace(exprPart)}
	if block.Expr == "" {
		return nil, errAt(file, pos, "{#each} needs an expression to iterate")
	}

	tail = strings.TrimSpace(tail)

	// Optional trailing key: "(expr)".
	if strings.HasSuffix(tail, ")") {
		if open := strings.Index(tail, "("); open >= 0 {
			block.Key = strings.TrimSpace(tail[open+1 : len(tail)-1])
			tail = strings.TrimSpace(tail[:open])
			if block.Key == "" {
				return nil, errAt(file, pos, "{#each} key must not be empty")
			}
		}
	}

	item, index, hasIndex := strings.Cut(tail, ",")
	block.Item = strings.TrimSpace(item)
	if !isIdentifier(block.Item) {
		return nil, errAt(file, pos, fmt.Sprintf("invalid each item name %q", block.Item))
	}
	if hasIndex {
		block.Index = strings.TrimSpace(index)
		if !isIdentifier(block.Index) {
			return nil, errAt(file, pos, fmt.Sprintf("invalid each index name %q", block.Index))
		}
	}
	return block, nil
}

// cutTopLevel splits s on the first occurrence of sep that is not nested
// inside brackets or a string literal.
func cutTopLevel(s, sep string) (before, after string, found bool) {
	depth := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '"', '\'', '`':
			quote := s[i]
			for i++; i < len(s); i++ {
				if s[i] == '\\' && quote != '`' {
					i++
					continue
				}
				if s[i] == quote {
					break
				}
			}
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			return s[:i], s[i+len(sep):], true
		}
	}
	return s, "", false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	if !isAlpha(s[0]) && s[0] != '_' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isAlnum(s[i]) && s[i] != '_' {
			return false
		}
	}
	return true
}
