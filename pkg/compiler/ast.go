package compiler

// Position locates a construct in component source. Line and Column are
// 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Component is the parse result of one .veld file.
type Component struct {
	// Name is the component type name derived from the file name.
	Name string
	// File is the source path, used in diagnostics.
	File string
	// Script is the raw Go source of the script block ("" when absent).
	Script string
	// ScriptPos is the position of the script block's content.
	ScriptPos Position
	// Fragment is the template body.
	Fragment []Node
}

// Node is a template AST node.
type Node interface {
	Pos() Position
}

// TextNode is literal text between tags.
type TextNode struct {
	Position Position
	// Text is the raw text with surrounding whitespace collapsed per line.
	Text string
}

func (n *TextNode) Pos() Position { return n.Position }

// MustacheTag is an interpolated Go expression: {expr}.
type MustacheTag struct {
	Position Position
	// Expr is the raw Go expression source.
	Expr string
}

func (n *MustacheTag) Pos() Position { return n.Position }

// AttrKind distinguishes how an attribute's value is produced.
type AttrKind int

const (
	// AttrStatic is name="literal".
	AttrStatic AttrKind = iota
	// AttrDynamic is name={expr}.
	AttrDynamic
	// AttrBool is a bare attribute with no value.
	AttrBool
)

// Attribute is a plain element attribute.
type Attribute struct {
	Position Position
	Name     string
	Kind     AttrKind
	// Value is the literal for AttrStatic, the expression source for
	// AttrDynamic, and "" for AttrBool.
	Value string
}

// EventHandler is an on:event directive. The expression must name a script
// function.
type EventHandler struct {
	Position Position
	Event    string
	Expr     string
}

// BindingDirective is a bind:property directive tying a form property to a
// state variable.
type BindingDirective struct {
	Position Position
	// Property is the bound property: "value" or "checked".
	Property string
	// Var is the state variable name.
	Var string
}

// ActionDirective is a use:name={params} directive.
type ActionDirective struct {
	Position Position
	// Name is the action expression (a script identifier or dotted path).
	Name string
	// Params is the parameter expression source, "" when omitted.
	Params string
}

// TransitionPhase says when a transition directive applies.
type TransitionPhase int

const (
	// PhaseBoth runs on both intro and outro (transition:).
	PhaseBoth TransitionPhase = iota
	// PhaseIn runs only on intro (in:).
	PhaseIn
	// PhaseOut runs only on outro (out:).
	PhaseOut
)

// TransitionDirective is a transition:/in:/out: directive.
type TransitionDirective struct {
	Position Position
	Phase    TransitionPhase
	// Name labels the directive (the part after the colon).
	Name string
	// Spec is a Go expression evaluating to a transition.Spec.
	Spec string
}

// ElementNode is a tag: a plain element (lowercase) or a child component
// (capitalized).
type ElementNode struct {
	Position    Position
	Tag         string
	Attributes  []Attribute
	Events      []EventHandler
	Bindings    []BindingDirective
	Actions     []ActionDirective
	Transitions []TransitionDirective
	Children    []Node
	SelfClosed  bool
}

func (n *ElementNode) Pos() Position { return n.Position }

// IsComponent reports whether the tag names a child component.
func (n *ElementNode) IsComponent() bool {
	return len(n.Tag) > 0 && n.Tag[0] >= 'A' && n.Tag[0] <= 'Z'
}

// IfBlock is {#if}...{:else if}...{:else}...{/if} flattened into branches.
type IfBlock struct {
	Position Position
	// Branches hold one entry per condition; a trailing Else may follow.
	Branches []IfBranch
	// Else is the {:else} body, nil when absent.
	Else []Node
}

func (n *IfBlock) Pos() Position { return n.Position }

// IfBranch is one conditional arm of an IfBlock.
type IfBranch struct {
	Position Position
	// Cond is the Go condition expression source.
	Cond string
	Body []Node
}

// EachBlock is {#each expr as item[, index] [(key)]}...{/each}.
type EachBlock struct {
	Position Position
	// Expr is the Go expression for the iterated slice.
	Expr string
	// Item is the per-item identifier.
	Item string
	// Index is the optional index identifier, "" when absent.
	Index string
	// Key is the optional key expression source, "" for positional blocks.
	Key  string
	Body []Node
}

func (n *EachBlock) Pos() Position { return n.Position }
