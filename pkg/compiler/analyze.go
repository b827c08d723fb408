package compiler

import (
	"fmt"
	"go/parser"

	"github.com/veld-ui/veld/pkg/errors"
)

// Analysis holds the reactivity information for one component: the script
// variable table and a dependency mask for every dynamic template part.
type Analysis struct {
	Component *Component
	Script    *ScriptInfo

	// ExprDeps lists every analyzed template expression in walk order,
	// mainly for inspection and snapshot tests.
	ExprDeps []ExprDep

	deps map[any]mask
}

// ExprDep pairs a template expression with the dirty bits it reads.
type ExprDep struct {
	Expr string
	Bits []int
}

// Analyze runs reactivity analysis over a parsed component.
func Analyze(component *Component) (*Analysis, error) {
	script, err := analyzeScript(component)
	if err != nil {
		return nil, err
	}
	a := &Analysis{
		Component: component,
		Script:    script,
		deps:      make(map[any]mask),
	}
	if err := a.walkNodes(component.Fragment, nil); err != nil {
		return nil, err
	}
	return a, nil
}

// DepsOf returns the dependency mask recorded for a template node keyed by
// pointer, or an empty mask when the node has no dynamic parts.
func (a *Analysis) DepsOf(node any) mask {
	if m, ok := a.deps[node]; ok {
		return m
	}
	return newMask(len(a.Script.Vars))
}

func (a *Analysis) walkNodes(nodes []Node, locals map[string]mask) error {
	for _, node := range nodes {
		if err := a.walkNode(node, locals); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analysis) walkNode(node Node, locals map[string]mask) error {
	switch n := node.(type) {
	case *TextNode:
		return nil

	case *MustacheTag:
		return a.record(n, n.Expr, n.Position, locals)

	case *ElementNode:
		return a.walkElement(n, locals)

	case *IfBlock:
		combined := newMask(len(a.Script.Vars))
		for i := range n.Branches {
			br := &n.Branches[i]
			if err := a.record(br, br.Cond, br.Position, locals); err != nil {
				return err
			}
			combined.or(a.deps[br])
			if err := a.walkNodes(br.Body, locals); err != nil {
				return err
			}
		}
		if err := a.walkNodes(n.Else, locals); err != nil {
			return err
		}
		a.deps[n] = combined
		return nil

	case *EachBlock:
		if err := a.record(n, n.Expr, n.Position, locals); err != nil {
			return err
		}
		// Each-locals inherit the list expression's dependencies, so any
		// expression built on an item re-evaluates when the list changes.
		inner := extendLocals(locals, a.deps[n], n.Item, n.Index)
		if n.Key != "" {
			if err := a.record(&n.Key, n.Key, n.Position, inner); err != nil {
				return err
			}
		}
		return a.walkNodes(n.Body, inner)
	}
	return nil
}

func (a *Analysis) walkElement(el *ElementNode, locals map[string]mask) error {
	if el.IsComponent() {
		if len(el.Events) > 0 || len(el.Bindings) > 0 || len(el.Actions) > 0 || len(el.Transitions) > 0 {
			return a.errAt(el.Position, fmt.Sprintf("component <%s> only accepts props", el.Tag))
		}
	}
	combined := newMask(len(a.Script.Vars))
	for i := range el.Attributes {
		attr := &el.Attributes[i]
		if attr.Kind != AttrDynamic {
			continue
		}
		if err := a.record(attr, attr.Value, attr.Position, locals); err != nil {
			return err
		}
		combined.or(a.deps[attr])
	}

	for i := range el.Events {
		ev := &el.Events[i]
		if err := a.checkExpr(ev.Expr, ev.Position); err != nil {
			return err
		}
	}

	for i := range el.Bindings {
		b := &el.Bindings[i]
		v, ok := a.Script.Var(b.Var)
		if !ok {
			return a.errAt(b.Position, fmt.Sprintf("bind:%s targets unknown variable %s", b.Property, b.Var))
		}
		if v.Reactive {
			return a.errAt(b.Position, fmt.Sprintf("cannot bind to reactive variable %s", b.Var))
		}
		switch b.Property {
		case "value":
			if v.Type != "string" {
				return a.errAt(b.Position, fmt.Sprintf("bind:value needs a string variable, %s is %s", b.Var, v.Type))
			}
		case "checked":
			if v.Type != "bool" {
				return a.errAt(b.Position, fmt.Sprintf("bind:checked needs a bool variable, %s is %s", b.Var, v.Type))
			}
		}
		m := newMask(len(a.Script.Vars))
		m.set(v.Bit)
		a.deps[b] = m
		combined.or(m)
	}

	for i := range el.Actions {
		act := &el.Actions[i]
		// Dotted action names resolve to imported packages at compile time
		// of the generated file; only bare names are checked here.
		if isIdentifier(act.Name) {
			if _, ok := a.Script.Func(act.Name); !ok {
				if _, ok := a.Script.Var(act.Name); !ok {
					return a.errAt(act.Position, fmt.Sprintf("use:%s targets unknown action", act.Name))
				}
			}
		}
		if act.Params != "" {
			if err := a.record(act, act.Params, act.Position, locals); err != nil {
				return err
			}
			combined.or(a.deps[act])
		}
	}

	for i := range el.Transitions {
		tr := &el.Transitions[i]
		if err := a.checkExpr(tr.Spec, tr.Position); err != nil {
			return err
		}
	}

	if err := a.walkNodes(el.Children, locals); err != nil {
		return err
	}
	a.deps[el] = combined
	return nil
}

// record computes and stores the dependency mask for one expression.
func (a *Analysis) record(key any, expr string, pos Position, locals map[string]mask) error {
	deps, err := a.Script.exprDeps(a.Component, expr, locals)
	if err != nil {
		ce := err.(*errors.CompileError)
		ce.Line = pos.Line
		ce.Column = pos.Column
		return ce
	}
	a.deps[key] = deps
	a.ExprDeps = append(a.ExprDeps, ExprDep{Expr: expr, Bits: deps.bits()})
	return nil
}

func (a *Analysis) checkExpr(expr string, pos Position) error {
	if _, err := parser.ParseExpr(expr); err != nil {
		return a.errAt(pos, fmt.Sprintf("invalid expression %q: %v", expr, trimParseError(err)))
	}
	return nil
}

func (a *Analysis) errAt(pos Position, msg string) error {
	return &errors.CompileError{
		File:   a.Component.File,
		Line:   pos.Line,
		Column: pos.Column,
		Kind:   errors.KindAnalyze,
		Msg:    msg,
	}
}

func extendLocals(locals map[string]mask, deps mask, names ...string) map[string]mask {
	out := make(map[string]mask, len(locals)+len(names))
	for k, v := range locals {
		out[k] = v
	}
	for _, name := range names {
		if name != "" {
			out[name] = deps
		}
	}
	return out
}
