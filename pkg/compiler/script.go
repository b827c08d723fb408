package compiler

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"
	"unicode"

	"github.com/veld-ui/veld/pkg/errors"
)

// reactDirective marks a var or func declaration as reactive.
const reactDirective = "//veld:react"

// VarInfo describes one top-level script variable. Every variable owns a
// dirty bit; exported variables are props settable by the parent.
type VarInfo struct {
	Name string
	// Bit is the variable's dirty-bit index, assigned in declaration order.
	Bit int
	// Type is the Go type source for the generated struct field.
	Type string
	// Init is the initializer source, "" when absent.
	Init string
	// Exported marks a prop.
	Exported bool
	// Reactive marks a //veld:react derived variable.
	Reactive bool
	// Deps holds the dirty bits a reactive initializer reads.
	Deps mask
}

// FuncInfo describes one top-level script function.
type FuncInfo struct {
	Name string
	Decl *ast.FuncDecl
	// Writes holds the dirty bits the body assigns.
	Writes mask
	// Reads holds the state bits the body reads (used for reactive funcs).
	Reads mask
	// Reactive marks a //veld:react side-effect function.
	Reactive bool
}

// ScriptInfo is the analysis result for a component's script block.
type ScriptInfo struct {
	// Vars in declaration order; bit i belongs to Vars[i].
	Vars []*VarInfo
	// Funcs in declaration order.
	Funcs []*FuncInfo
	// ReactiveOrder lists reactive units (vars and funcs) in dependency
	// order.
	ReactiveOrder []ReactiveUnit
	// Imports holds the script's import specs, carried to generated code.
	Imports []string
	// Extra holds const/type declarations passed through verbatim.
	Extra []string

	varIndex  map[string]*VarInfo
	funcIndex map[string]*FuncInfo
	fset      *token.FileSet
}

// ReactiveUnit is one re-runnable reactive declaration: a derived var or a
// side-effect func.
type ReactiveUnit struct {
	Var  *VarInfo  // nil for funcs
	Func *FuncInfo // nil for vars
}

// Words returns the number of uint32 dirty words the component needs.
func (info *ScriptInfo) Words() int {
	return (len(info.Vars) + 31) / 32
}

// Var resolves a state variable by name.
func (info *ScriptInfo) Var(name string) (*VarInfo, bool) {
	v, ok := info.varIndex[name]
	return v, ok
}

// Func resolves a script function by name.
func (info *ScriptInfo) Func(name string) (*FuncInfo, bool) {
	f, ok := info.funcIndex[name]
	return f, ok
}

// stateNames returns the set of identifiers that refer to component state:
// variables and script functions.
func (info *ScriptInfo) stateNames() map[string]bool {
	names := make(map[string]bool, len(info.varIndex)+len(info.funcIndex))
	for name := range info.varIndex {
		names[name] = true
	}
	for name := range info.funcIndex {
		names[name] = true
	}
	return names
}

// mask is a dirty-bit set, one bit per script variable.
type mask []uint32

func newMask(bits int) mask {
	return make(mask, (bits+31)/32)
}

func (m mask) set(bit int) {
	m[bit/32] |= 1 << (bit % 32)
}

func (m mask) has(bit int) bool {
	return m[bit/32]&(1<<(bit%32)) != 0
}

func (m mask) or(other mask) {
	for i := range m {
		m[i] |= other[i]
	}
}

func (m mask) intersects(other mask) bool {
	for i := range m {
		if m[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

func (m mask) empty() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

// bits returns the set bit indices in ascending order.
func (m mask) bits() []int {
	var out []int
	for i := range m {
		for b := 0; b < 32; b++ {
			if m[i]&(1<<b) != 0 {
				out = append(out, i*32+b)
			}
		}
	}
	return out
}

// analyzeScript parses the script block and builds the variable table,
// write sets, and reactive dependency order.
func analyzeScript(component *Component) (*ScriptInfo, error) {
	info := &ScriptInfo{
		varIndex:  make(map[string]*VarInfo),
		funcIndex: make(map[string]*FuncInfo),
		fset:      token.NewFileSet(),
	}
	if strings.TrimSpace(component.Script) == "" {
		return info, nil
	}

	wrapped := "package component\n" + component.Script
	file, err := parser.ParseFile(info.fset, component.File, wrapped, parser.ParseComments)
	if err != nil {
		return nil, scriptError(component, err)
	}

	// First pass: declarations.
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if err := info.collectGenDecl(component, d); err != nil {
				return nil, err
			}
		case *ast.FuncDecl:
			if err := info.collectFuncDecl(component, d); err != nil {
				return nil, err
			}
		}
	}

	// Second pass: read/write sets need the complete variable table.
	states := info.stateNames()
	for _, v := range info.Vars {
		if !v.Reactive || v.Init == "" {
			continue
		}
		deps, err := info.exprDeps(component, v.Init, nil)
		if err != nil {
			return nil, err
		}
		v.Deps = deps
		if v.Deps.has(v.Bit) {
			return nil, analyzeErrAt(component, Position{}, fmt.Sprintf("reactive variable %s reads itself", v.Name))
		}
	}
	for _, f := range info.Funcs {
		reads, writes := bodyAccess(f.Decl, states, info)
		f.Reads = reads
		f.Writes = writes
	}

	if err := info.orderReactive(component); err != nil {
		return nil, err
	}
	return info, nil
}

func (info *ScriptInfo) collectGenDecl(component *Component, d *ast.GenDecl) error {
	switch d.Tok {
	case token.IMPORT:
		for _, spec := range d.Specs {
			imp := spec.(*ast.ImportSpec)
			src := imp.Path.Value
			if imp.Name != nil {
				src = imp.Name.Name + " " + src
			}
			info.Imports = append(info.Imports, src)
		}
		return nil

	case token.CONST, token.TYPE:
		info.Extra = append(info.Extra, printNode(info.fset, d))
		return nil

	case token.VAR:
		reactive := hasDirective(d.Doc)
		for _, spec := range d.Specs {
			vs := spec.(*ast.ValueSpec)
			if !reactive && hasDirective(vs.Doc) {
				reactive = true
			}
			if len(vs.Names) != 1 {
				return analyzeErrAt(component, info.declPos(component, vs.Pos()),
					"declare one variable per var statement")
			}
			name := vs.Names[0].Name
			if name == "c" {
				return analyzeErrAt(component, info.declPos(component, vs.Pos()),
					"the name c is reserved by generated code")
			}
			if _, exists := info.varIndex[name]; exists {
				return analyzeErrAt(component, info.declPos(component, vs.Pos()),
					fmt.Sprintf("duplicate variable %s", name))
			}

			v := &VarInfo{
				Name:     name,
				Bit:      len(info.Vars),
				Exported: unicode.IsUpper(rune(name[0])),
				Reactive: reactive,
			}
			if len(vs.Values) == 1 {
				v.Init = printNode(info.fset, vs.Values[0])
			} else if len(vs.Values) > 1 {
				return analyzeErrAt(component, info.declPos(component, vs.Pos()),
					"declare one variable per var statement")
			}

			if vs.Type != nil {
				v.Type = printNode(info.fset, vs.Type)
			} else {
				inferred, ok := inferType(vs.Values)
				if !ok {
					return analyzeErrAt(component, info.declPos(component, vs.Pos()),
						fmt.Sprintf("cannot infer the type of %s; declare it explicitly", name))
				}
				v.Type = inferred
			}

			if v.Reactive {
				if v.Exported {
					return analyzeErrAt(component, info.declPos(component, vs.Pos()),
						fmt.Sprintf("prop %s cannot be reactive", name))
				}
				if v.Init == "" {
					return analyzeErrAt(component, info.declPos(component, vs.Pos()),
						fmt.Sprintf("reactive variable %s needs an initializer", name))
				}
			}

			info.Vars = append(info.Vars, v)
			info.varIndex[name] = v
		}
		return nil
	}
	return nil
}

func (info *ScriptInfo) collectFuncDecl(component *Component, d *ast.FuncDecl) error {
	if d.Recv != nil {
		return analyzeErrAt(component, info.declPos(component, d.Pos()),
			"script functions cannot have receivers")
	}
	name := d.Name.Name
	if _, exists := info.funcIndex[name]; exists {
		return analyzeErrAt(component, info.declPos(component, d.Pos()),
			fmt.Sprintf("duplicate function %s", name))
	}
	f := &FuncInfo{Name: name, Decl: d, Reactive: hasDirective(d.Doc)}
	if f.Reactive {
		if d.Type.Params.NumFields() != 0 || d.Type.Results.NumFields() != 0 {
			return analyzeErrAt(component, info.declPos(component, d.Pos()),
				fmt.Sprintf("reactive function %s cannot take parameters or return values", name))
		}
	}
	info.Funcs = append(info.Funcs, f)
	info.funcIndex[name] = f
	return nil
}

// orderReactive topologically sorts reactive units by their read/write
// dependencies and rejects cycles.
func (info *ScriptInfo) orderReactive(component *Component) error {
	type unit struct {
		ReactiveUnit
		reads  mask
		writes mask
	}

	var units []*unit
	for _, v := range info.Vars {
		if !v.Reactive {
			continue
		}
		writes := newMask(len(info.Vars))
		writes.set(v.Bit)
		units = append(units, &unit{ReactiveUnit{Var: v}, v.Deps, writes})
	}
	for _, f := range info.Funcs {
		if !f.Reactive {
			continue
		}
		units = append(units, &unit{ReactiveUnit{Func: f}, f.Reads, f.Writes})
	}
	if len(units) == 0 {
		return nil
	}

	// Kahn's algorithm; edge i->j when i writes something j reads.
	indegree := make([]int, len(units))
	successors := make([][]int, len(units))
	for i, producer := range units {
		for j, consumer := range units {
			if i == j {
				continue
			}
			if consumer.reads.intersects(producer.writes) {
				successors[i] = append(successors[i], j)
				indegree[j]++
			}
		}
	}

	var queue []int
	for i, deg := range indegree {
		if deg == 0 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		info.ReactiveOrder = append(info.ReactiveOrder, units[i].ReactiveUnit)
		for _, j := range successors[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(info.ReactiveOrder) != len(units) {
		var stuck []string
		for i, deg := range indegree {
			if deg > 0 {
				if units[i].Var != nil {
					stuck = append(stuck, units[i].Var.Name)
				} else {
					stuck = append(stuck, units[i].Func.Name)
				}
			}
		}
		return analyzeErrAt(component, Position{},
			fmt.Sprintf("reactive dependency cycle: %s", strings.Join(stuck, ", ")))
	}
	return nil
}

// exprDeps parses a Go expression and returns the dirty bits of the state
// variables it reads. locals maps template-bound identifiers (each items,
// indexes) to the bits their values derive from.
func (info *ScriptInfo) exprDeps(component *Component, src string, locals map[string]mask) (mask, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, &errors.CompileError{
			File: component.File,
			Kind: errors.KindAnalyze,
			Msg:  fmt.Sprintf("invalid expression %q: %v", src, trimParseError(err)),
		}
	}
	deps := newMask(len(info.Vars))
	shadowed := collectLocalNames(expr)
	walkIdents(expr, func(id *ast.Ident) {
		if shadowed[id.Name] {
			return
		}
		if m, ok := locals[id.Name]; ok {
			deps.or(m)
			return
		}
		if v, ok := info.varIndex[id.Name]; ok {
			deps.set(v.Bit)
		}
	})
	return deps, nil
}

// bodyAccess computes the state bits a function body reads and writes.
func bodyAccess(fn *ast.FuncDecl, states map[string]bool, info *ScriptInfo) (reads, writes mask) {
	reads = newMask(len(info.Vars))
	writes = newMask(len(info.Vars))
	if fn.Body == nil {
		return reads, writes
	}
	shadowed := collectLocalNames(fn)

	record := func(id *ast.Ident, m mask) {
		if shadowed[id.Name] {
			return
		}
		if v, ok := info.varIndex[id.Name]; ok {
			m.set(v.Bit)
		}
	}

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch stmt := n.(type) {
		case *ast.AssignStmt:
			for _, lhs := range stmt.Lhs {
				if id := rootIdent(lhs); id != nil && stmt.Tok != token.DEFINE {
					record(id, writes)
				}
			}
		case *ast.IncDecStmt:
			if id := rootIdent(stmt.X); id != nil {
				record(id, writes)
			}
		case *ast.Ident:
			record(stmt, reads)
		}
		return true
	})
	return reads, writes
}

// rootIdent unwraps index and selector expressions to the base identifier:
// items[0].Done writes items.
func rootIdent(expr ast.Expr) *ast.Ident {
	for {
		switch e := expr.(type) {
		case *ast.Ident:
			return e
		case *ast.SelectorExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		default:
			return nil
		}
	}
}

// collectLocalNames over-approximates locally-bound identifiers in a node:
// parameters, := targets, local var declarations, and range variables.
// A state variable shadowed anywhere in the body is treated as local
// throughout, trading a missed invalidation on pathological shadowing for
// analysis simplicity.
func collectLocalNames(node ast.Node) map[string]bool {
	locals := make(map[string]bool)
	addFieldList := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, field := range fl.List {
			for _, name := range field.Names {
				locals[name.Name] = true
			}
		}
	}
	if fn, ok := node.(*ast.FuncDecl); ok {
		addFieldList(fn.Type.Params)
		addFieldList(fn.Type.Results)
	}
	ast.Inspect(node, func(n ast.Node) bool {
		switch stmt := n.(type) {
		case *ast.AssignStmt:
			if stmt.Tok == token.DEFINE {
				for _, lhs := range stmt.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						locals[id.Name] = true
					}
				}
			}
		case *ast.RangeStmt:
			if id, ok := stmt.Key.(*ast.Ident); ok {
				locals[id.Name] = true
			}
			if id, ok := stmt.Value.(*ast.Ident); ok {
				locals[id.Name] = true
			}
		case *ast.DeclStmt:
			if gd, ok := stmt.Decl.(*ast.GenDecl); ok && gd.Tok == token.VAR {
				for _, spec := range gd.Specs {
					if vs, ok := spec.(*ast.ValueSpec); ok {
						for _, name := range vs.Names {
							locals[name.Name] = true
						}
					}
				}
			}
		case *ast.FuncLit:
			addFieldList(stmt.Type.Params)
			addFieldList(stmt.Type.Results)
		}
		return true
	})
	return locals
}

// walkIdents visits value-position identifiers, skipping selector fields
// and composite-literal keys.
func walkIdents(node ast.Node, visit func(*ast.Ident)) {
	ast.Inspect(node, func(n ast.Node) bool {
		switch e := n.(type) {
		case *ast.SelectorExpr:
			walkIdents(e.X, visit)
			return false
		case *ast.KeyValueExpr:
			if _, ok := e.Key.(*ast.Ident); ok {
				walkIdents(e.Value, visit)
				return false
			}
		case *ast.Ident:
			visit(e)
		}
		return true
	})
}

// inferType derives a field type from a basic-literal initializer. Anything
// beyond simple literals needs an explicit type.
func inferType(values []ast.Expr) (string, bool) {
	if len(values) != 1 {
		return "", false
	}
	switch v := values[0].(type) {
	case *ast.BasicLit:
		switch v.Kind {
		case token.INT:
			return "int", true
		case token.FLOAT:
			return "float64", true
		case token.STRING:
			return "string", true
		case token.CHAR:
			return "rune", true
		}
	case *ast.Ident:
		if v.Name == "true" || v.Name == "false" {
			return "bool", true
		}
	case *ast.UnaryExpr:
		if v.Op == token.SUB {
			return inferType([]ast.Expr{v.X})
		}
	case *ast.CompositeLit:
		if v.Type != nil {
			return printNode(token.NewFileSet(), v.Type), true
		}
	}
	return "", false
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, comment := range doc.List {
		if strings.TrimSpace(comment.Text) == reactDirective {
			return true
		}
	}
	return false
}

func printNode(fset *token.FileSet, node any) string {
	var sb strings.Builder
	if err := printer.Fprint(&sb, fset, node); err != nil {
		return ""
	}
	return sb.String()
}

// declPos maps a wrapped-script position back to the component file.
func (info *ScriptInfo) declPos(component *Component, pos token.Pos) Position {
	p := info.fset.Position(pos)
	// Line 1 of the wrapped source is the synthetic package clause; line 2
	// is the first line of script content.
	return Position{
		Line:   p.Line - 2 + component.ScriptPos.Line,
		Column: p.Column,
	}
}

func scriptError(component *Component, err error) error {
	return &errors.CompileError{
		File: component.File,
		Line: component.ScriptPos.Line,
		Kind: errors.KindParse,
		Msg:  fmt.Sprintf("invalid script block: %v", trimParseError(err)),
		Err:  err,
	}
}

func analyzeErrAt(component *Component, pos Position, msg string) error {
	return &errors.CompileError{
		File:   component.File,
		Line:   pos.Line,
		Column: pos.Column,
		Kind:   errors.KindAnalyze,
		Msg:    msg,
	}
}

// trimParseError strips the synthetic filename prefix go/parser adds.
func trimParseError(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
