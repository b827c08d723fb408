package compiler

import (
	"fmt"
	"strings"

	"github.com/veld-ui/veld/pkg/errors"
)

// cursor is the low-level scanner the template parser reads through. It
// tracks line/column so every diagnostic can point into the source.
type cursor struct {
	file string
	src  string
	off  int
	line int
	col  int
}

func newCursor(file, src string) *cursor {
	return &cursor{file: file, src: src, line: 1, col: 1}
}

func (c *cursor) eof() bool {
	return c.off >= len(c.src)
}

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.off]
}

func (c *cursor) peekAt(n int) byte {
	if c.off+n >= len(c.src) {
		return 0
	}
	return c.src[c.off+n]
}

// at reports whether the input at the cursor starts with s.
func (c *cursor) at(s string) bool {
	return strings.HasPrefix(c.src[c.off:], s)
}

func (c *cursor) pos() Position {
	return Position{Offset: c.off, Line: c.line, Column: c.col}
}

// advance consumes n bytes, updating line/column.
func (c *cursor) advance(n int) {
	for i := 0; i < n && c.off < len(c.src); i++ {
		if c.src[c.off] == '\n' {
			c.line++
			c.col = 1
		} else {
			c.col++
		}
		c.off++
	}
}

func (c *cursor) next() byte {
	b := c.peek()
	c.advance(1)
	return b
}

func (c *cursor) skipSpace() {
	for !c.eof() && isSpace(c.peek()) {
		c.advance(1)
	}
}

// readUntil consumes input up to (not including) the first occurrence of
// any rune in stops, returning what was consumed.
func (c *cursor) readUntil(stops string) string {
	start := c.off
	for !c.eof() && !strings.ContainsRune(stops, rune(c.peek())) {
		c.advance(1)
	}
	return c.src[start:c.off]
}

// readIdent consumes an identifier-like run: letters, digits, underscore,
// and the separators that appear in attribute/directive names.
func (c *cursor) readIdent(extra string) string {
	start := c.off
	for !c.eof() {
		b := c.peek()
		if isAlnum(b) || b == '_' || strings.ContainsRune(extra, rune(b)) {
			c.advance(1)
			continue
		}
		break
	}
	return c.src[start:c.off]
}

// readExpr consumes a brace-balanced Go expression. The cursor must sit on
// the opening '{'; the returned source excludes the outer braces. Strings,
// runes, raw strings, and comments inside the expression are honored so
// braces within them don't unbalance the scan.
func (c *cursor) readExpr() (string, Position, error) {
	if c.peek() != '{' {
		return "", c.pos(), c.errorf("expected '{'")
	}
	open := c.pos()
	c.advance(1)
	start := c.off
	depth := 1

	for !c.eof() {
		switch b := c.peek(); b {
		case '{':
			depth++
			c.advance(1)
		case '}':
			depth--
			if depth == 0 {
				expr := c.src[start:c.off]
				c.advance(1)
				return strings.TrimSpace(expr), posAfterBrace(open), nil
			}
			c.advance(1)
		case '"', '\'':
			if err := c.skipQuoted(b); err != nil {
				return "", open, err
			}
		case '`':
			c.advance(1)
			for !c.eof() && c.peek() != '`' {
				c.advance(1)
			}
			if c.eof() {
				return "", open, c.errorf("unterminated raw string in expression")
			}
			c.advance(1)
		case '/':
			if c.peekAt(1) == '/' {
				c.readUntil("\n")
			} else if c.peekAt(1) == '*' {
				c.advance(2)
				for !c.eof() && !c.at("*/") {
					c.advance(1)
				}
				c.advance(2)
			} else {
				c.advance(1)
			}
		default:
			c.advance(1)
		}
	}
	return "", open, errAt(c.file, open, "unbalanced '{' in expression")
}

// skipQuoted consumes a quoted literal starting at the current quote byte.
func (c *cursor) skipQuoted(quote byte) error {
	start := c.pos()
	c.advance(1)
	for !c.eof() {
		b := c.next()
		if b == '\\' {
			c.advance(1)
			continue
		}
		if b == quote {
			return nil
		}
		if b == '\n' {
			return errAt(c.file, start, "newline in quoted literal")
		}
	}
	return errAt(c.file, start, "unterminated quoted literal")
}

func (c *cursor) errorf(format string, args ...any) error {
	return errAt(c.file, c.pos(), fmt.Sprintf(format, args...))
}

func posAfterBrace(open Position) Position {
	return Position{Offset: open.Offset + 1, Line: open.Line, Column: open.Column + 1}
}

func errAt(file string, pos Position, msg string) error {
	return &errors.CompileError{
		File:   file,
		Line:   pos.Line,
		Column: pos.Column,
		Kind:   errors.KindParse,
		Msg:    msg,
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlnum(b byte) bool {
	return isAlpha(b) || (b >= '0' && b <= '9')
}
