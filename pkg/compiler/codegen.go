package compiler

import (
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/veld-ui/veld/pkg/errors"
)

// Import paths of the packages generated code leans on.
const (
	domPath        = "github.com/veld-ui/veld/pkg/dom"
	runtimePath    = "github.com/veld-ui/veld/pkg/runtime"
	actionPath     = "github.com/veld-ui/veld/pkg/action"
	transitionPath = "github.com/veld-ui/veld/pkg/transition"
)

// Generate emits the Go source for an analyzed component.
func Generate(a *Analysis, opts Options) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "components"
	}
	g := &generator{
		a:        a,
		pkg:      pkg,
		noHeader: opts.NoHeader,
		imports:  make(map[string]string),
		aliases:  make(map[string]string),
	}
	src, err := g.run()
	if err != nil {
		return nil, err
	}
	formatted, ferr := format.Source(src)
	if ferr != nil {
		return nil, &errors.CompileError{
			File: a.Component.File,
			Kind: errors.KindGenerate,
			Msg:  fmt.Sprintf("generated source does not format: %v", ferr),
			Err:  ferr,
		}
	}
	return formatted, nil
}

type generator struct {
	a        *Analysis
	pkg      string
	noHeader bool

	// imports maps path -> alias ("" for default) for veld-added imports.
	imports map[string]string
	// aliases maps path -> alias declared by the script block.
	aliases map[string]string

	body   strings.Builder
	nextID int

	// pending block-helper definitions, appended after the component.
	blocks []string
}

// frame describes where generated code runs: the component itself or a
// nested block fragment, with the each-locals visible there.
type frame struct {
	// compRef is how the frame reaches the component instance.
	compRef string
	// nearest is the innermost enclosing each-item binding, nil at top.
	nearest *itemFrame
	// basePath is the receiver path from this frame to nearest: "f" when
	// the frame is the item fragment itself, "f.o" otherwise.
	basePath string
	// oType names the enclosing item fragment's type, "" when none.
	oType string
}

// itemFrame is one each-item binding level.
type itemFrame struct {
	item     string
	index    string
	eachExpr string
	typeName string
	parent   *itemFrame
}

func (g *generator) run() ([]byte, error) {
	comp := g.a.Component
	script := g.a.Script

	for _, imp := range script.Imports {
		path, alias := splitImport(imp)
		g.aliases[path] = alias
	}

	root := &frame{compRef: "c"}
	rootFrag := &fragmentDef{g: g, recv: "c", frame: root, isRoot: true}
	if err := rootFrag.genNodes(comp.Fragment, "", true); err != nil {
		return nil, err
	}

	g.emitComponent(rootFrag)
	if err := g.emitScriptMethods(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if !g.noHeader {
		fmt.Fprintf(&sb, "// Code generated by veld from %s; DO NOT EDIT.\n\n", comp.File)
	}
	fmt.Fprintf(&sb, "package %s\n\n", g.pkg)
	g.emitImports(&sb)
	sb.WriteString(g.body.String())
	for _, block := range g.blocks {
		sb.WriteString(block)
	}
	return []byte(sb.String()), nil
}

// ref returns the identifier generated code uses for one of the veld
// packages, honoring a script-declared alias.
func (g *generator) ref(path string) string {
	def := path[strings.LastIndex(path, "/")+1:]
	if alias, ok := g.aliases[path]; ok {
		if alias == "" {
			return def
		}
		return alias
	}
	g.imports[path] = ""
	return def
}

func (g *generator) use(path string) { g.ref(path) }

func (g *generator) emitImports(sb *strings.Builder) {
	script := g.a.Script
	if len(g.imports) == 0 && len(script.Imports) == 0 {
		return
	}
	sb.WriteString("import (\n")
	var std, veld []string
	for path := range g.imports {
		if strings.Contains(path, ".") {
			veld = append(veld, path)
		} else {
			std = append(std, path)
		}
	}
	sort.Strings(std)
	sort.Strings(veld)
	for _, path := range std {
		fmt.Fprintf(sb, "\t%q\n", path)
	}
	for _, path := range veld {
		fmt.Fprintf(sb, "\t%q\n", path)
	}
	for _, imp := range script.Imports {
		fmt.Fprintf(sb, "\t%s\n", imp)
	}
	sb.WriteString(")\n\n")
}

func splitImport(imp string) (path, alias string) {
	fields := strings.Fields(imp)
	quoted := fields[len(fields)-1]
	path, _ = strconv.Unquote(quoted)
	if len(fields) == 2 {
		alias = fields[0]
	}
	return path, alias
}

// maskCond renders the condition "dirty intersects mask", or "" when the
// mask is empty.
func maskCond(dirtyVar string, m mask) string {
	var parts []string
	for i, word := range m {
		if word != 0 {
			parts = append(parts, fmt.Sprintf("%s[%d]&0x%x != 0", dirtyVar, i, word))
		}
	}
	return strings.Join(parts, " || ")
}

// fullMask renders an all-ones dirty literal sized for the component.
func (g *generator) fullMask() string {
	words := g.a.Script.Words()
	parts := make([]string, words)
	for i := range parts {
		parts[i] = "^uint32(0)"
	}
	return "[]uint32{" + strings.Join(parts, ", ") + "}"
}

// rewrite maps a template expression into generated code for a frame:
// state and script-func identifiers route through the component pointer,
// each-locals through the fragment receiver chain.
func (g *generator) rewrite(src string, fr *frame) (string, error) {
	return rewriteExpr(src, g.scopeMap(fr.nearest, fr.basePath, fr.compRef))
}

// scopeMap builds the identifier substitution for a frame. Inner bindings
// shadow outer ones, and each-locals shadow state.
func (g *generator) scopeMap(nearest *itemFrame, basePath, compRef string) map[string]string {
	m := make(map[string]string)
	for name := range g.a.Script.varIndex {
		m[name] = compRef + "." + name
	}
	for name := range g.a.Script.funcIndex {
		m[name] = compRef + "." + name
	}

	var chain []*itemFrame
	var paths []string
	for fr, p := nearest, basePath; fr != nil; fr, p = fr.parent, p+".o" {
		chain = append(chain, fr)
		paths = append(paths, p)
	}
	for k := len(chain) - 1; k >= 0; k-- {
		fr, p := chain[k], paths[k]
		if fr.index != "" {
			m[fr.index] = p + ".i"
		}
		listSrc, err := rewriteExpr(fr.eachExpr, g.scopeMap(fr.parent, p+".o", compRef))
		if err == nil {
			m[fr.item] = "(" + listSrc + ")[" + p + ".i]"
		}
	}
	return m
}

func rewriteExpr(src string, mapping map[string]string) (string, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return "", err
	}
	shadow := collectLocalNames(expr)
	walkIdents(expr, func(id *ast.Ident) {
		if shadow[id.Name] {
			return
		}
		if repl, ok := mapping[id.Name]; ok {
			id.Name = repl
		}
	})
	return printNode(token.NewFileSet(), expr), nil
}

// fragmentDef accumulates the generated code of one fragment: the
// component's root template or a block-helper body.
type fragmentDef struct {
	g        *generator
	typeName string
	recv     string
	frame    *frame
	isRoot   bool

	fields []string
	create []string
	mount  []string
	patch  []string
	detach []string
	outro  []string

	outroCount int
}

func (f *fragmentDef) id(prefix string) string {
	f.g.nextID++
	return fmt.Sprintf("%s%d", prefix, f.g.nextID)
}

func (f *fragmentDef) field(name, typ string) {
	f.fields = append(f.fields, name+" "+typ)
}

func (f *fragmentDef) createf(format string, args ...any) {
	f.create = append(f.create, fmt.Sprintf(format, args...))
}

func (f *fragmentDef) mountf(format string, args ...any) {
	f.mount = append(f.mount, fmt.Sprintf(format, args...))
}

func (f *fragmentDef) patchf(format string, args ...any) {
	f.patch = append(f.patch, fmt.Sprintf(format, args...))
}

func (f *fragmentDef) detachf(format string, args ...any) {
	f.detach = append(f.detach, fmt.Sprintf(format, args...))
}

func (f *fragmentDef) rewrite(src string) (string, error) {
	return f.g.rewrite(src, f.frame)
}

func (f *fragmentDef) genErr(pos Position, msg string, err error) error {
	return &errors.CompileError{
		File:   f.g.a.Component.File,
		Line:   pos.Line,
		Column: pos.Column,
		Kind:   errors.KindGenerate,
		Msg:    msg,
		Err:    err,
	}
}

// genNodes walks a node list. parentField is the element field the nodes
// are appended to during create; topLevel nodes are instead inserted in
// Mount and removed in Detach.
func (f *fragmentDef) genNodes(nodes []Node, parentField string, topLevel bool) error {
	for _, node := range nodes {
		if err := f.genNode(node, parentField, topLevel); err != nil {
			return err
		}
	}
	return nil
}

func (f *fragmentDef) genNode(node Node, parentField string, topLevel bool) error {
	switch n := node.(type) {
	case *TextNode:
		return f.genText(n, parentField, topLevel)
	case *MustacheTag:
		return f.genMustache(n, parentField, topLevel)
	case *ElementNode:
		if n.IsComponent() {
			return f.genComponent(n, parentField, topLevel)
		}
		return f.genElement(n, parentField, topLevel)
	case *IfBlock:
		return f.genIf(n, parentField, topLevel)
	case *EachBlock:
		return f.genEach(n, parentField, topLevel)
	}
	return nil
}

// place handles insertion of a freshly created node: nested nodes append to
// their parent element at create time, top-level nodes wait for Mount.
func (f *fragmentDef) place(fieldRef, parentField string, topLevel bool) {
	dom := f.g.ref(domPath)
	if topLevel {
		f.mountf("%s.Insert(parent, %s, anchor)", dom, fieldRef)
		f.detachf("%s.Detach(%s)", dom, fieldRef)
	} else {
		f.createf("%s.Insert(%s.%s, %s, nil)", dom, f.recv, parentField, fieldRef)
	}
}

func (f *fragmentDef) genText(n *TextNode, parentField string, topLevel bool) error {
	dom := f.g.ref(domPath)
	if !topLevel {
		f.createf("%s.Insert(%s.%s, %s.NewText(%q), nil)", dom, f.recv, parentField, dom, n.Text)
		return nil
	}
	name := f.id("t")
	f.field(name, "*"+dom+".Text")
	f.createf("%s.%s = %s.NewText(%q)", f.recv, name, dom, n.Text)
	f.place(f.recv+"."+name, parentField, topLevel)
	return nil
}

func (f *fragmentDef) genMustache(n *MustacheTag, parentField string, topLevel bool) error {
	expr, err := f.rewrite(n.Expr)
	if err != nil {
		return f.genErr(n.Position, fmt.Sprintf("cannot rewrite expression %q", n.Expr), err)
	}
	dom := f.g.ref(domPath)
	f.g.use("fmt")
	name := f.id("t")
	f.field(name, "*"+dom+".Text")
	f.createf("%s.%s = %s.NewText(fmt.Sprint(%s))", f.recv, name, dom, expr)
	f.place(f.recv+"."+name, parentField, topLevel)
	if cond := maskCond("dirty", f.g.a.DepsOf(n)); cond != "" {
		f.patchf("if %s {\n\t\t%s.%s.SetData(fmt.Sprint(%s))\n\t}", cond, f.recv, name, expr)
	}
	return nil
}

func (f *fragmentDef) genElement(n *ElementNode, parentField string, topLevel bool) error {
	dom := f.g.ref(domPath)
	name := f.id("e")
	f.field(name, "*"+dom+".Element")
	self := f.recv + "." + name
	f.createf("%s = %s.NewElement(%q)", self, dom, n.Tag)

	for i := range n.Attributes {
		attr := &n.Attributes[i]
		switch attr.Kind {
		case AttrStatic:
			f.createf("%s.SetAttr(%q, %q)", self, attr.Name, attr.Value)
		case AttrBool:
			f.createf("%s.SetAttr(%q, %q)", self, attr.Name, "")
		case AttrDynamic:
			expr, err := f.rewrite(attr.Value)
			if err != nil {
				return f.genErr(attr.Position, fmt.Sprintf("cannot rewrite expression %q", attr.Value), err)
			}
			f.g.use("fmt")
			f.createf("%s.SetAttr(%q, fmt.Sprint(%s))", self, attr.Name, expr)
			if cond := maskCond("dirty", f.g.a.DepsOf(attr)); cond != "" {
				f.patchf("if %s {\n\t\t%s.SetAttr(%q, fmt.Sprint(%s))\n\t}", cond, self, attr.Name, expr)
			}
		}
	}

	for i := range n.Events {
		ev := &n.Events[i]
		expr, err := f.rewrite(ev.Expr)
		if err != nil {
			return f.genErr(ev.Position, fmt.Sprintf("cannot rewrite expression %q", ev.Expr), err)
		}
		rt := f.g.ref(runtimePath)
		f.createf("%s.On(%q, func(ev *%s.Event) {\n\t\t%s.CallHandler(%s, ev)\n\t})", self, ev.Event, dom, rt, expr)
	}

	for i := range n.Bindings {
		if err := f.genBinding(&n.Bindings[i], self); err != nil {
			return err
		}
	}

	for i := range n.Actions {
		if err := f.genAction(&n.Actions[i], self); err != nil {
			return err
		}
	}

	for i := range n.Transitions {
		if err := f.genTransition(&n.Transitions[i], self); err != nil {
			return err
		}
	}

	if err := f.genNodes(n.Children, name, false); err != nil {
		return err
	}
	f.place(self, parentField, topLevel)
	return nil
}

func (f *fragmentDef) genBinding(b *BindingDirective, self string) error {
	v, _ := f.g.a.Script.Var(b.Var)
	target, err := f.rewrite(b.Var)
	if err != nil {
		return f.genErr(b.Position, fmt.Sprintf("cannot rewrite binding target %s", b.Var), err)
	}
	dom := f.g.ref(domPath)
	comp := f.frame.compRef

	switch b.Property {
	case "value":
		f.createf("%s.SetAttr(%q, %s)", self, "value", target)
		f.createf("%s.On(%q, func(ev *%s.Event) {\n\t\t%s = ev.Value\n\t\t%s.MarkDirty(%d)\n\t})",
			self, "input", dom, target, comp, v.Bit)
		f.patchf("if %s {\n\t\t%s.SetAttr(%q, %s)\n\t}",
			maskCond("dirty", f.g.a.DepsOf(b)), self, "value", target)
	case "checked":
		f.g.use("fmt")
		f.createf("%s.SetAttr(%q, fmt.Sprint(%s))", self, "checked", target)
		f.createf("%s.On(%q, func(ev *%s.Event) {\n\t\t%s = ev.Value == %q\n\t\t%s.MarkDirty(%d)\n\t})",
			self, "change", dom, target, "true", comp, v.Bit)
		f.patchf("if %s {\n\t\t%s.SetAttr(%q, fmt.Sprint(%s))\n\t}",
			maskCond("dirty", f.g.a.DepsOf(b)), self, "checked", target)
	}
	return nil
}

func (f *fragmentDef) genAction(act *ActionDirective, self string) error {
	fn, err := f.rewrite(act.Name)
	if err != nil {
		return f.genErr(act.Position, fmt.Sprintf("cannot rewrite action %s", act.Name), err)
	}
	params := "nil"
	if act.Params != "" {
		params, err = f.rewrite(act.Params)
		if err != nil {
			return f.genErr(act.Position, fmt.Sprintf("cannot rewrite expression %q", act.Params), err)
		}
	}
	ap := f.g.ref(actionPath)
	name := f.id("a")
	f.field(name, "*"+ap+".Applied")
	f.createf("%s.%s = %s.Apply(&%s.Base, %s, %s.Action(%s), %s)",
		f.recv, name, ap, f.frame.compRef, self, ap, fn, params)
	if act.Params != "" {
		if cond := maskCond("dirty", f.g.a.DepsOf(act)); cond != "" {
			f.patchf("if %s {\n\t\t%s.%s.Update(%s)\n\t}", cond, f.recv, name, params)
		}
	}
	return nil
}

func (f *fragmentDef) genTransition(tr *TransitionDirective, self string) error {
	spec, err := f.rewrite(tr.Spec)
	if err != nil {
		return f.genErr(tr.Position, fmt.Sprintf("cannot rewrite expression %q", tr.Spec), err)
	}
	tp := f.g.ref(transitionPath)
	if tr.Phase == PhaseBoth || tr.Phase == PhaseIn {
		f.mountf("%s.Run(%s, %s, %s.Intro, nil)", tp, self, spec, tp)
	}
	if tr.Phase == PhaseBoth || tr.Phase == PhaseOut {
		f.outroCount++
		f.outro = append(f.outro, fmt.Sprintf("%s.Run(%s, %s, %s.Outro, fire)", tp, self, spec, tp))
	}
	return nil
}

func (f *fragmentDef) genComponent(n *ElementNode, parentField string, topLevel bool) error {
	rt := f.g.ref(runtimePath)
	name := f.id("k")
	f.field(name, "*"+n.Tag)
	self := f.recv + "." + name
	comp := f.frame.compRef
	f.createf("%s = New%s(%s.Scheduler(), %s)", self, n.Tag, comp, comp)

	for i := range n.Attributes {
		attr := &n.Attributes[i]
		switch attr.Kind {
		case AttrStatic:
			f.createf("%s.%s = %q", self, attr.Name, attr.Value)
		case AttrBool:
			f.createf("%s.%s = true", self, attr.Name)
		case AttrDynamic:
			expr, err := f.rewrite(attr.Value)
			if err != nil {
				return f.genErr(attr.Position, fmt.Sprintf("cannot rewrite expression %q", attr.Value), err)
			}
			f.createf("%s.%s = %s", self, attr.Name, expr)
			if cond := maskCond("dirty", f.g.a.DepsOf(attr)); cond != "" {
				f.patchf("if %s {\n\t\t%s.Set%s(%s)\n\t}", cond, self, attr.Name, expr)
			}
		}
	}

	if topLevel {
		f.mountf("%s.MountComponent(%s, parent, anchor)", rt, self)
	} else {
		f.createf("%s.MountComponent(%s, %s.%s, nil)", rt, self, f.recv, parentField)
	}
	f.detachf("%s.DestroyComponent(%s)", rt, self)
	return nil
}

// genIf emits an if-block helper type and wires it into this fragment.
func (f *fragmentDef) genIf(n *IfBlock, parentField string, topLevel bool) error {
	g := f.g
	helper := g.blockTypeName("If")
	name := f.id("b")

	var branchTypes []string
	for i := range n.Branches {
		bt, err := g.emitBranch(helper+"b"+strconv.Itoa(i), f.frame, n.Branches[i].Body)
		if err != nil {
			return err
		}
		branchTypes = append(branchTypes, bt)
	}
	elseType := ""
	if n.Else != nil {
		bt, err := g.emitBranch(helper+"else", f.frame, n.Else)
		if err != nil {
			return err
		}
		elseType = bt
	}

	var conds []string
	helperFrame := g.blockFrame(f.frame)
	for i := range n.Branches {
		cond, err := g.rewrite(n.Branches[i].Cond, helperFrame)
		if err != nil {
			return f.genErr(n.Branches[i].Position, fmt.Sprintf("cannot rewrite condition %q", n.Branches[i].Cond), err)
		}
		conds = append(conds, cond)
	}

	g.emitIfHelper(helper, helperFrame, conds, branchTypes, elseType, g.a.DepsOf(n))

	f.field(name, "*"+helper)
	f.createf("%s.%s = %s", f.recv, name, g.blockLiteral(helper, f.frame))
	f.createf("%s.%s.Create()", f.recv, name)
	f.wireBlock(name, parentField, topLevel)
	return nil
}

// genEach emits an each-block helper and item fragment type.
func (f *fragmentDef) genEach(n *EachBlock, parentField string, topLevel bool) error {
	g := f.g
	helper := g.blockTypeName("Each")
	itemType := helper + "Item"
	name := f.id("b")

	helperFrame := g.blockFrame(f.frame)
	listExpr, err := g.rewrite(n.Expr, helperFrame)
	if err != nil {
		return f.genErr(n.Position, fmt.Sprintf("cannot rewrite expression %q", n.Expr), err)
	}

	itemFr := &itemFrame{
		item:     n.Item,
		index:    n.Index,
		eachExpr: n.Expr,
		typeName: itemType,
		parent:   f.frame.nearest,
	}
	itemFrm := &frame{
		compRef:  "f.c",
		nearest:  itemFr,
		basePath: "f",
	}
	if itemFr.parent != nil {
		itemFrm.oType = itemFr.parent.typeName
	}

	itemDef := &fragmentDef{g: g, typeName: itemType, recv: "f", frame: itemFrm}
	if err := itemDef.genNodes(n.Body, "", true); err != nil {
		return err
	}

	keyed := n.Key != ""
	keySrc := ""
	if keyed {
		// keyAt evaluates the key against the fresh list by index, before
		// any fragment exists for the row. The fragment then stores the key
		// it was created under, so Key() stays valid after the list changes.
		keyScope := g.scopeMap(helperFrame.nearest, helperFrame.basePath, helperFrame.compRef)
		keyScope[n.Item] = "(list)[i]"
		if n.Index != "" {
			keyScope[n.Index] = "i"
		}
		keySrc, err = rewriteExpr(n.Key, keyScope)
		if err != nil {
			return f.genErr(n.Position, fmt.Sprintf("cannot rewrite key expression %q", n.Key), err)
		}
	}

	g.emitItemType(itemDef, keyed)
	g.emitEachHelper(helper, helperFrame, itemType, listExpr, keySrc, keyed, g.a.DepsOf(n))

	f.field(name, "*"+helper)
	f.createf("%s.%s = %s", f.recv, name, g.blockLiteral(helper, f.frame))
	f.createf("%s.%s.Create()", f.recv, name)
	f.wireBlock(name, parentField, topLevel)
	return nil
}

// wireBlock mounts, patches, and detaches a block helper field.
func (f *fragmentDef) wireBlock(name, parentField string, topLevel bool) {
	self := f.recv + "." + name
	if topLevel {
		f.mountf("%s.Mount(parent, anchor)", self)
		f.detachf("%s.Detach()", self)
	} else {
		f.createf("%s.Mount(%s.%s, nil)", self, f.recv, parentField)
	}
	f.patchf("%s.Patch(dirty)", self)
}

func (g *generator) blockTypeName(kind string) string {
	g.nextID++
	return lowerFirst(g.a.Component.Name) + kind + strconv.Itoa(g.nextID)
}

// blockFrame derives the frame for a helper or branch struct nested in
// parent: same bindings, reached through the o pointer.
func (g *generator) blockFrame(parent *frame) *frame {
	fr := &frame{compRef: "f.c", nearest: parent.nearest, basePath: parent.basePath, oType: parent.oType}
	if parent.compRef == "c" {
		fr.basePath = ""
		if parent.nearest == nil {
			fr.oType = ""
		}
	} else if parent.basePath == "f" {
		// Parent is an item fragment; nested structs reach it via o.
		fr.basePath = "f.o"
		fr.oType = parent.nearest.typeName
	}
	return fr
}

// blockLiteral builds the composite literal constructing a nested block
// from within parent's create code.
func (g *generator) blockLiteral(typeName string, parent *frame) string {
	if parent.compRef == "c" {
		return "&" + typeName + "{c: c}"
	}
	if parent.basePath == "f" {
		return "&" + typeName + "{c: f.c, o: f}"
	}
	if parent.oType != "" {
		return "&" + typeName + "{c: f.c, o: f.o}"
	}
	return "&" + typeName + "{c: f.c}"
}

// emitBranch generates one if-branch fragment type and returns its name.
func (g *generator) emitBranch(typeName string, parent *frame, body []Node) (string, error) {
	fr := g.blockFrame(parent)
	def := &fragmentDef{g: g, typeName: typeName, recv: "f", frame: fr}
	if err := def.genNodes(body, "", true); err != nil {
		return "", err
	}
	g.emitFragmentType(def, false)
	return typeName, nil
}

func (g *generator) emitItemType(def *fragmentDef, keyed bool) {
	def.field("i", "int")
	if keyed {
		def.field("k", "any")
	}
	g.emitFragmentType(def, keyed)
}

// emitFragmentType renders a block fragment struct with Create, Mount,
// Patch, and Detach, plus Key and Outro where needed.
func (g *generator) emitFragmentType(def *fragmentDef, keyed bool) {
	var sb strings.Builder
	comp := g.a.Component.Name
	dom := g.ref(domPath)

	fmt.Fprintf(&sb, "\ntype %s struct {\n", def.typeName)
	fmt.Fprintf(&sb, "\tc *%s\n", comp)
	if def.frame.oType != "" {
		fmt.Fprintf(&sb, "\to *%s\n", def.frame.oType)
	}
	for _, field := range def.fields {
		fmt.Fprintf(&sb, "\t%s\n", field)
	}
	sb.WriteString("}\n")

	emitMethod(&sb, def.typeName, "Create()", def.create)
	emitMethod(&sb, def.typeName, fmt.Sprintf("Mount(parent *%s.Element, anchor %s.Node)", dom, dom), def.mount)
	emitMethod(&sb, def.typeName, "Patch(dirty []uint32)", def.patch)
	emitMethod(&sb, def.typeName, "Detach()", def.detach)

	if keyed {
		fmt.Fprintf(&sb, "\nfunc (f *%s) Key() any {\n\treturn f.k\n}\n", def.typeName)
	}
	if def.outroCount > 0 {
		fmt.Fprintf(&sb, "\nfunc (f *%s) Outro(done func()) bool {\n", def.typeName)
		fmt.Fprintf(&sb, "\tremaining := %d\n", def.outroCount)
		sb.WriteString("\tfire := func() {\n\t\tremaining--\n\t\tif remaining == 0 {\n\t\t\tdone()\n\t\t}\n\t}\n")
		for _, line := range def.outro {
			fmt.Fprintf(&sb, "\t%s\n", line)
		}
		sb.WriteString("\treturn true\n}\n")
	}

	g.blocks = append(g.blocks, sb.String())
}

func emitMethod(sb *strings.Builder, typeName, sig string, lines []string) {
	fmt.Fprintf(sb, "\nfunc (f *%s) %s {\n", typeName, sig)
	for _, line := range lines {
		fmt.Fprintf(sb, "\t%s\n", line)
	}
	sb.WriteString("}\n")
}

// emitIfHelper renders the helper type driving an if-block: it owns the
// position anchor and swaps branch fragments when conditions change.
func (g *generator) emitIfHelper(typeName string, fr *frame, conds, branchTypes []string, elseType string, deps mask) {
	var sb strings.Builder
	comp := g.a.Component.Name
	dom := g.ref(domPath)
	rt := g.ref(runtimePath)

	fmt.Fprintf(&sb, "\ntype %s struct {\n\tc *%s\n", typeName, comp)
	if fr.oType != "" {
		fmt.Fprintf(&sb, "\to *%s\n", fr.oType)
	}
	fmt.Fprintf(&sb, "\tparent *%s.Element\n\tmark *%s.Anchor\n\tidx int\n\tfrag %s.Fragment\n}\n", dom, dom, rt)

	fmt.Fprintf(&sb, "\nfunc (f *%s) Create() {\n\tf.mark = %s.NewAnchor(%q)\n\tf.idx = -1\n}\n", typeName, dom, "if")
	fmt.Fprintf(&sb, "\nfunc (f *%s) Mount(parent *%s.Element, anchor %s.Node) {\n", typeName, dom, dom)
	fmt.Fprintf(&sb, "\tf.parent = parent\n\t%s.Insert(parent, f.mark, anchor)\n", dom)
	sb.WriteString("\tif f.frag != nil {\n\t\tf.frag.Mount(parent, f.mark)\n\t\treturn\n\t}\n\tf.sync(nil)\n}\n")

	fmt.Fprintf(&sb, "\nfunc (f *%s) Patch(dirty []uint32) {\n", typeName)
	if cond := maskCond("dirty", deps); cond != "" {
		fmt.Fprintf(&sb, "\tif %s {\n\t\tf.sync(dirty)\n\t\treturn\n\t}\n", cond)
	}
	sb.WriteString("\tif f.frag != nil {\n\t\tf.frag.Patch(dirty)\n\t}\n}\n")

	fmt.Fprintf(&sb, "\nfunc (f *%s) sync(dirty []uint32) {\n\tidx := -1\n\tswitch {\n", typeName)
	for i, cond := range conds {
		fmt.Fprintf(&sb, "\tcase %s:\n\t\tidx = %d\n", cond, i)
	}
	if elseType != "" {
		fmt.Fprintf(&sb, "\tdefault:\n\t\tidx = %d\n", len(conds))
	}
	sb.WriteString("\t}\n")
	sb.WriteString("\tif idx == f.idx {\n\t\tif f.frag != nil && dirty != nil {\n\t\t\tf.frag.Patch(dirty)\n\t\t}\n\t\treturn\n\t}\n")
	sb.WriteString("\told := f.frag\n\tf.idx = idx\n\tf.frag = nil\n\tswitch idx {\n")
	for i, bt := range branchTypes {
		fmt.Fprintf(&sb, "\tcase %d:\n\t\tf.frag = %s\n", i, g.branchLiteral(bt, fr))
	}
	if elseType != "" {
		fmt.Fprintf(&sb, "\tcase %d:\n\t\tf.frag = %s\n", len(branchTypes), g.branchLiteral(elseType, fr))
	}
	sb.WriteString("\t}\n")
	fmt.Fprintf(&sb, "\tif old != nil {\n\t\t%s.DetachWithOutro(old)\n\t}\n", rt)
	sb.WriteString("\tif f.frag != nil {\n\t\tf.frag.Create()\n\t\tf.frag.Mount(f.parent, f.mark)\n\t}\n}\n")

	fmt.Fprintf(&sb, "\nfunc (f *%s) Detach() {\n", typeName)
	fmt.Fprintf(&sb, "\tif f.frag != nil {\n\t\tf.frag.Detach()\n\t\tf.frag = nil\n\t\tf.idx = -1\n\t}\n\t%s.Detach(f.mark)\n}\n", dom)

	g.blocks = append(g.blocks, sb.String())
}

// branchLiteral constructs a branch fragment from inside the helper, which
// shares the helper's frame.
func (g *generator) branchLiteral(typeName string, fr *frame) string {
	if fr.oType != "" {
		return "&" + typeName + "{c: f.c, o: f.o}"
	}
	return "&" + typeName + "{c: f.c}"
}

// emitEachHelper renders the helper driving an each-block: it owns the
// anchor and reconciles item fragments against the list.
func (g *generator) emitEachHelper(typeName string, fr *frame, itemType, listExpr, keySrc string, keyed bool, deps mask) {
	var sb strings.Builder
	comp := g.a.Component.Name
	dom := g.ref(domPath)
	rt := g.ref(runtimePath)
	fragType := rt + ".Fragment"
	if keyed {
		fragType = rt + ".Keyed"
	}

	fmt.Fprintf(&sb, "\ntype %s struct {\n\tc *%s\n", typeName, comp)
	if fr.oType != "" {
		fmt.Fprintf(&sb, "\to *%s\n", fr.oType)
	}
	fmt.Fprintf(&sb, "\tparent *%s.Element\n\tmark *%s.Anchor\n\titems []%s\n}\n", dom, dom, fragType)

	fmt.Fprintf(&sb, "\nfunc (f *%s) Create() {\n\tf.mark = %s.NewAnchor(%q)\n}\n", typeName, dom, "each")
	fmt.Fprintf(&sb, "\nfunc (f *%s) Mount(parent *%s.Element, anchor %s.Node) {\n", typeName, dom, dom)
	fmt.Fprintf(&sb, "\tf.parent = parent\n\t%s.Insert(parent, f.mark, anchor)\n", dom)
	sb.WriteString("\tif f.items != nil {\n\t\tfor _, it := range f.items {\n\t\t\tit.Mount(parent, f.mark)\n\t\t}\n\t\treturn\n\t}\n\tf.reconcile()\n}\n")

	fmt.Fprintf(&sb, "\nfunc (f *%s) Patch(dirty []uint32) {\n", typeName)
	if cond := maskCond("dirty", deps); cond != "" {
		fmt.Fprintf(&sb, "\tif %s {\n\t\tf.reconcile()\n\t\treturn\n\t}\n", cond)
	}
	sb.WriteString("\tfor _, it := range f.items {\n\t\tit.Patch(dirty)\n\t}\n}\n")

	itemLit := "&" + itemType + "{c: f.c, i: i}"
	if fr.oType != "" {
		itemLit = "&" + itemType + "{c: f.c, o: f.o, i: i}"
	}

	fmt.Fprintf(&sb, "\nfunc (f *%s) reconcile() {\n\tlist := %s\n", typeName, listExpr)
	if keyed {
		fmt.Fprintf(&sb, "\tf.items = %s.ReconcileKeyed(f.items, len(list),\n", rt)
		fmt.Fprintf(&sb, "\t\tfunc(i int) any { return %s },\n", keySrc)
		fmt.Fprintf(&sb, "\t\tfunc(i int) %s.Keyed {\n\t\t\tit := %s\n\t\t\tit.k = %s\n\t\t\tit.Create()\n\t\t\treturn it\n\t\t},\n", rt, itemLit, keySrc)
		fmt.Fprintf(&sb, "\t\tfunc(fr %s.Keyed, i int) {\n\t\t\tit := fr.(*%s)\n\t\t\tit.i = i\n\t\t\tit.Patch(%s)\n\t\t},\n", rt, itemType, g.fullMask())
		sb.WriteString("\t\tf.parent, f.mark)\n}\n")
	} else {
		fmt.Fprintf(&sb, "\tf.items = %s.ReconcilePositional(f.items, len(list),\n", rt)
		fmt.Fprintf(&sb, "\t\tfunc(i int) %s.Fragment {\n\t\t\tit := %s\n\t\t\tit.Create()\n\t\t\treturn it\n\t\t},\n", rt, itemLit)
		fmt.Fprintf(&sb, "\t\tfunc(fr %s.Fragment, i int) {\n\t\t\tit := fr.(*%s)\n\t\t\tit.i = i\n\t\t\tit.Patch(%s)\n\t\t},\n", rt, itemType, g.fullMask())
		sb.WriteString("\t\tf.parent, f.mark)\n}\n")
	}

	fmt.Fprintf(&sb, "\nfunc (f *%s) Detach() {\n", typeName)
	sb.WriteString("\tfor _, it := range f.items {\n\t\tit.Detach()\n\t}\n\tf.items = nil\n")
	fmt.Fprintf(&sb, "\t%s.Detach(f.mark)\n}\n", dom)

	g.blocks = append(g.blocks, sb.String())
}

// emitComponent renders the component struct, constructor, prop setters,
// and the root fragment methods.
func (g *generator) emitComponent(root *fragmentDef) {
	script := g.a.Script
	comp := g.a.Component.Name
	rt := g.ref(runtimePath)
	dom := g.ref(domPath)
	sb := &g.body

	fmt.Fprintf(sb, "// %s is compiled from %s.\n", comp, g.a.Component.File)
	fmt.Fprintf(sb, "type %s struct {\n\t%s.Base\n\n", comp, rt)
	for _, v := range script.Vars {
		fmt.Fprintf(sb, "\t%s %s\n", v.Name, v.Type)
	}
	if len(script.Vars) > 0 && len(root.fields) > 0 {
		sb.WriteString("\n")
	}
	for _, field := range root.fields {
		fmt.Fprintf(sb, "\t%s\n", field)
	}
	sb.WriteString("}\n")

	// Constructor: initializers in declaration order, then reactive values
	// in dependency order.
	fmt.Fprintf(sb, "\nfunc New%s(sched *%s.Scheduler, parent %s.Component) *%s {\n", comp, rt, rt, comp)
	fmt.Fprintf(sb, "\tc := &%s{}\n", comp)
	scope := g.scopeMap(nil, "", "c")
	for _, v := range script.Vars {
		if v.Reactive || v.Init == "" {
			continue
		}
		init, err := rewriteExpr(v.Init, scope)
		if err != nil {
			init = v.Init
		}
		fmt.Fprintf(sb, "\tc.%s = %s\n", v.Name, init)
	}
	fmt.Fprintf(sb, "\tc.Init(sched, parent, c, %q, %d)\n", comp, len(script.Vars))
	for _, unit := range script.ReactiveOrder {
		if unit.Var != nil {
			init, err := rewriteExpr(unit.Var.Init, scope)
			if err != nil {
				init = unit.Var.Init
			}
			fmt.Fprintf(sb, "\tc.%s = %s\n", unit.Var.Name, init)
		}
	}
	for _, unit := range script.ReactiveOrder {
		if unit.Func != nil {
			fmt.Fprintf(sb, "\tc.OnMount(c.%s)\n", unit.Func.Name)
		}
	}
	for _, hook := range []struct{ fn, reg string }{
		{"onMount", "OnMount"},
		{"onDestroy", "OnDestroy"},
		{"beforeUpdate", "BeforeUpdate"},
		{"afterUpdate", "AfterUpdate"},
	} {
		if fi, ok := script.Func(hook.fn); ok && !fi.Reactive {
			fmt.Fprintf(sb, "\tc.%s(c.%s)\n", hook.reg, hook.fn)
		}
	}
	sb.WriteString("\treturn c\n}\n")

	// Prop setters invalidate so parents can re-render children.
	for _, v := range script.Vars {
		if !v.Exported {
			continue
		}
		fmt.Fprintf(sb, "\nfunc (c *%s) Set%s(v %s) {\n\tc.%s = v\n\tc.MarkDirty(%d)\n}\n",
			comp, v.Name, v.Type, v.Name, v.Bit)
	}

	// Extra const and type declarations from the script block.
	for _, extra := range script.Extra {
		fmt.Fprintf(sb, "\n%s\n", extra)
	}

	writeRootMethod := func(sig string, lines []string) {
		fmt.Fprintf(sb, "\nfunc (c *%s) %s {\n", comp, sig)
		for _, line := range lines {
			fmt.Fprintf(sb, "\t%s\n", line)
		}
		sb.WriteString("}\n")
	}

	writeRootMethod("Create()", root.create)
	writeRootMethod(fmt.Sprintf("Mount(parent *%s.Element, anchor %s.Node)", dom, dom), root.mount)

	patchLines := root.patch
	if len(script.ReactiveOrder) > 0 {
		patchLines = append([]string{"dirty = c.recompute(dirty)"}, patchLines...)
	}
	writeRootMethod("Patch(dirty []uint32)", patchLines)
	writeRootMethod("Detach()", root.detach)

	if len(script.ReactiveOrder) > 0 {
		g.emitRecompute()
	}
	if root.outroCount > 0 {
		fmt.Fprintf(sb, "\nfunc (c *%s) Outro(done func()) bool {\n", comp)
		fmt.Fprintf(sb, "\tremaining := %d\n", root.outroCount)
		sb.WriteString("\tfire := func() {\n\t\tremaining--\n\t\tif remaining == 0 {\n\t\t\tdone()\n\t\t}\n\t}\n")
		for _, line := range root.outro {
			fmt.Fprintf(sb, "\t%s\n", line)
		}
		sb.WriteString("\treturn true\n}\n")
	}
}

// emitRecompute renders the reactive recompute pass run at the top of
// Patch. Derived variables extend the dirty mask in place so downstream
// template updates see them in the same flush.
func (g *generator) emitRecompute() {
	script := g.a.Script
	comp := g.a.Component.Name
	sb := &g.body
	scope := g.scopeMap(nil, "", "c")

	fmt.Fprintf(sb, "\nfunc (c *%s) recompute(dirty []uint32) []uint32 {\n", comp)
	for _, unit := range script.ReactiveOrder {
		if unit.Var != nil {
			v := unit.Var
			cond := maskCond("dirty", v.Deps)
			if cond == "" {
				continue
			}
			init, err := rewriteExpr(v.Init, scope)
			if err != nil {
				init = v.Init
			}
			fmt.Fprintf(sb, "\tif %s {\n\t\tc.%s = %s\n\t\tdirty[%d] |= 0x%x\n\t}\n",
				cond, v.Name, init, v.Bit/32, uint32(1)<<(v.Bit%32))
			continue
		}
		fn := unit.Func
		cond := maskCond("dirty", fn.Reads)
		if cond == "" {
			continue
		}
		fmt.Fprintf(sb, "\tif %s {\n\t\tc.%s()\n\t}\n", cond, fn.Name)
	}
	sb.WriteString("\treturn dirty\n}\n")
}

// emitScriptMethods turns top-level script functions into component
// methods with state writes instrumented to invalidate.
func (g *generator) emitScriptMethods() error {
	script := g.a.Script
	comp := g.a.Component.Name
	states := script.stateNames()

	for _, fi := range script.Funcs {
		decl := fi.Decl
		shadow := collectLocalNames(decl)

		instrumentBlock(decl.Body, shadow, script)
		renameBody(decl, states, shadow)

		decl.Doc = nil
		decl.Recv = &ast.FieldList{List: []*ast.Field{{
			Names: []*ast.Ident{ast.NewIdent("c")},
			Type:  &ast.StarExpr{X: ast.NewIdent(comp)},
		}}}
		src := printNode(script.fset, decl)
		if src == "" {
			return &errors.CompileError{
				File: g.a.Component.File,
				Kind: errors.KindGenerate,
				Msg:  fmt.Sprintf("cannot print function %s", fi.Name),
			}
		}
		fmt.Fprintf(&g.body, "\n%s\n", src)
	}
	return nil
}

// instrumentBlock inserts MarkDirtyMask calls after statements that write
// state, recursively through nested blocks and closures.
func instrumentBlock(block *ast.BlockStmt, shadow map[string]bool, script *ScriptInfo) {
	if block == nil {
		return
	}
	block.List = instrumentStmts(block.List, shadow, script)
}

func instrumentStmts(stmts []ast.Stmt, shadow map[string]bool, script *ScriptInfo) []ast.Stmt {
	var out []ast.Stmt
	for _, stmt := range stmts {
		instrumentNested(stmt, shadow, script)
		out = append(out, stmt)
		if writes := stmtWrites(stmt, shadow, script); !writes.empty() {
			for i, word := range writes {
				if word == 0 {
					continue
				}
				out = append(out, markDirtyStmt(i, word))
			}
		}
	}
	return out
}

func instrumentNested(stmt ast.Stmt, shadow map[string]bool, script *ScriptInfo) {
	switch s := stmt.(type) {
	case *ast.IfStmt:
		instrumentBlock(s.Body, shadow, script)
		if els, ok := s.Else.(*ast.BlockStmt); ok {
			instrumentBlock(els, shadow, script)
		} else if els, ok := s.Else.(*ast.IfStmt); ok {
			instrumentNested(els, shadow, script)
		}
	case *ast.ForStmt:
		instrumentBlock(s.Body, shadow, script)
	case *ast.RangeStmt:
		instrumentBlock(s.Body, shadow, script)
	case *ast.SwitchStmt:
		for _, clause := range s.Body.List {
			if cc, ok := clause.(*ast.CaseClause); ok {
				cc.Body = instrumentStmts(cc.Body, shadow, script)
			}
		}
	case *ast.TypeSwitchStmt:
		for _, clause := range s.Body.List {
			if cc, ok := clause.(*ast.CaseClause); ok {
				cc.Body = instrumentStmts(cc.Body, shadow, script)
			}
		}
	case *ast.SelectStmt:
		for _, clause := range s.Body.List {
			if cc, ok := clause.(*ast.CommClause); ok {
				cc.Body = instrumentStmts(cc.Body, shadow, script)
			}
		}
	case *ast.BlockStmt:
		instrumentBlock(s, shadow, script)
	case *ast.LabeledStmt:
		instrumentNested(s.Stmt, shadow, script)
	case *ast.GoStmt:
		if fl, ok := s.Call.Fun.(*ast.FuncLit); ok {
			instrumentBlock(fl.Body, shadow, script)
		}
	case *ast.DeferStmt:
		if fl, ok := s.Call.Fun.(*ast.FuncLit); ok {
			instrumentBlock(fl.Body, shadow, script)
		}
	case *ast.AssignStmt:
		for _, rhs := range s.Rhs {
			if fl, ok := rhs.(*ast.FuncLit); ok {
				instrumentBlock(fl.Body, shadow, script)
			}
		}
	case *ast.ExprStmt:
		if call, ok := s.X.(*ast.CallExpr); ok {
			for _, arg := range call.Args {
				if fl, ok := arg.(*ast.FuncLit); ok {
					instrumentBlock(fl.Body, shadow, script)
				}
			}
		}
	}
}

// stmtWrites returns the state bits a single statement assigns directly.
func stmtWrites(stmt ast.Stmt, shadow map[string]bool, script *ScriptInfo) mask {
	writes := newMask(len(script.Vars))
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		if s.Tok == token.DEFINE {
			return writes
		}
		for _, lhs := range s.Lhs {
			if id := rootIdent(lhs); id != nil && !shadow[id.Name] {
				if v, ok := script.varIndex[id.Name]; ok {
					writes.set(v.Bit)
				}
			}
		}
	case *ast.IncDecStmt:
		if id := rootIdent(s.X); id != nil && !shadow[id.Name] {
			if v, ok := script.varIndex[id.Name]; ok {
				writes.set(v.Bit)
			}
		}
	}
	return writes
}

func markDirtyStmt(word int, bits uint32) ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun: &ast.SelectorExpr{X: ast.NewIdent("c"), Sel: ast.NewIdent("MarkDirtyMask")},
		Args: []ast.Expr{
			&ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(word)},
			&ast.BasicLit{Kind: token.INT, Value: fmt.Sprintf("0x%x", bits)},
		},
	}}
}

// renameBody qualifies unshadowed state and script-func identifiers with
// the method receiver.
func renameBody(decl *ast.FuncDecl, states, shadow map[string]bool) {
	if decl.Body == nil {
		return
	}
	walkIdents(decl.Body, func(id *ast.Ident) {
		if shadow[id.Name] {
			return
		}
		if states[id.Name] && id.Name != "c" {
			id.Name = "c." + id.Name
		}
	})
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
