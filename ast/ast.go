// Package ast defines the typed AST produced by the parser (spec.md §3.2).
//
// The node families are modeled as tagged variants over three capability
// interfaces — Node, Stmt, Expr — the same shape the teacher's Jinja port
// uses (internal/parser/ast.go: unexported marker methods plus a Span()
// accessor), generalized from Jinja's node set to this engine's default and
// Liquid dialects. There is no open inheritance and no parent back-pointer;
// `When.Next` and `If.Else` are singly-linked chains, exactly as spec.md §9
// calls for.
package ast

import "github.com/scrib-lang/scrib/syntax"

// Node is implemented by every AST node.
type Node interface {
	node()
	Span() syntax.Span
	Trivia() (before, after []Trivia)
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmt()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

// ConditionStmt is the capability union {If, Else, When} spec.md §3.2
// defines for the chain a conditional's else-branch walks.
type ConditionStmt interface {
	Stmt
	conditionStmt()
}

// base is embedded by every concrete node; it carries span + trivia and
// implements the parts of Node common to all of them.
type base struct {
	span   syntax.Span
	before []Trivia
	after  []Trivia
}

func (b *base) node() {}

func (b *base) Span() syntax.Span { return b.span }

func (b *base) Trivia() (before, after []Trivia) { return b.before, b.after }

// Open sets the node's span start and prepares it to receive trivia; it
// mirrors the teacher's "create open, then close" node lifecycle
// (spec.md §3.4).
func (b *base) Open(start syntax.Position, file string) {
	b.span = syntax.Span{File: file, Start: start}
}

// Close sets the node's span end.
func (b *base) Close(end syntax.Position) {
	b.span.End = end
}

// AdjustStart moves the node's span start forward. Used only by the
// front-matter boundary nudge (spec.md §3.3, §4.8) to advance a Raw past
// the newline following a closing front-matter marker.
func (b *base) AdjustStart(start syntax.Position) {
	b.span.Start = start
}

// SetBefore/SetAfter attach trivia to the node. A Block container never
// receives trivia (spec.md §4.2) — the parser skips *Block when flushing
// pending trivia; these setters do not enforce that, they are plain
// setters used by the trivia manager.
func (b *base) SetBefore(t []Trivia) { b.before = t }
func (b *base) SetAfter(t []Trivia)  { b.after = t }

// ScriptPage is the root of a parsed source file.
type ScriptPage struct {
	base
	FrontMatter *Block
	Body        *Block
}

func (*ScriptPage) stmt() {}

// Block groups a sequence of statements. Per spec.md §3.3, trivia is never
// attached to a block container directly — it migrates to the first/last
// child.
type Block struct {
	base
	Statements []Stmt
}

func (*Block) stmt() {}

// Raw is literal output text. EscapeCount > 0 means the text was produced
// by an escape sequence (`\{{` .. `\\\\\\\\\{{`) rather than being true
// template-literal source, and the evaluator must re-emit it without
// reinterpreting the escaped delimiter (spec.md §3.1 EscapeCount1..9).
type Raw struct {
	base
	Text        string
	EscapeCount int
	Synthetic   TriviaType
}

func (*Raw) stmt() {}

// TriviaType distinguishes a genuine Raw from a placeholder the dispatcher
// synthesized purely to anchor otherwise-orphaned trivia across a
// code-exit/code-enter adjacency (spec.md §4.2, §9 "{% %} {% %} adjacency").
type TriviaType int

const (
	TriviaTypeNone TriviaType = iota // an ordinary Raw with real source text
	TriviaTypeEmpty                  // synthesized solely to hold trivia
)

// Nop is an empty statement, emitted when a code section opens and closes
// immediately (spec.md §4.4 rule 3).
type Nop struct {
	base
}

func (*Nop) stmt() {}

// ExpressionStmt wraps an expression evaluated for its side effect (or, in
// an object/liquid section, for its emitted value).
type ExpressionStmt struct {
	base
	Expression Expr
}

func (*ExpressionStmt) stmt() {}

// If represents if/elseif/unless. IsElseIf marks a node reached through an
// `else if`/`elsif` chain (so it must not be separately end-terminated —
// spec.md §4.3). InvertCondition marks Liquid's `unless`.
type If struct {
	base
	Condition       Expr
	IsElseIf        bool
	InvertCondition bool
	Then            *Block
	Else            ConditionStmt // *Else, *If (elseif), or nil
}

func (*If) stmt()          {}
func (*If) conditionStmt() {}

// Else is the trailing branch of an If or When chain.
type Else struct {
	base
	Body *Block
}

func (*Else) stmt()          {}
func (*Else) conditionStmt() {}

// For represents a counted/iterated loop over Iterator, binding Variable.
type For struct {
	base
	Variable Expr
	Iterator Expr
	Body     *Block
}

func (*For) stmt() {}

// While represents a condition-tested loop.
type While struct {
	base
	Condition Expr
	Body      *Block
}

func (*While) stmt() {}

// Case is a multi-way branch; its Body contains only When/Else children
// (spec.md §3.3) — raw text between branches is dropped at parse time.
type Case struct {
	base
	Value Expr
	Body  *Block
}

func (*Case) stmt() {}

// When is one branch of a Case, chained to the next When/Else via Next.
type When struct {
	base
	Values []Expr
	Body   *Block
	Next   ConditionStmt
}

func (*When) stmt()          {}
func (*When) conditionStmt() {}

// Capture runs Body and assigns its rendered output to Target instead of
// emitting it.
type Capture struct {
	base
	Target Expr
	Body   *Block
}

func (*Capture) stmt() {}

// With introduces Name as an additional implicit-lookup scope for Body.
type With struct {
	base
	Name Expr
	Body *Block
}

func (*With) stmt() {}

// Wrap calls Target as a function whose body is the rendered Body.
type Wrap struct {
	base
	Target Expr
	Body   *Block
}

func (*Wrap) stmt() {}

// Function declares a named or anonymous function statement. Name is empty
// for the anonymous form (spec.md §4.5 "func").
type Function struct {
	base
	Name string
	Body *Block
}

func (*Function) stmt() {}

// Import evaluates Expression and imports its exported members into the
// current scope.
type Import struct {
	base
	Expression Expr
}

func (*Import) stmt() {}

// Return exits the current function/template with an optional value.
type Return struct {
	base
	Expression Expr // nil if bare `ret`
}

func (*Return) stmt() {}

// Break exits the innermost loop. Validity outside a loop is deferred to
// evaluation time (spec.md §9 open question) — the parser never rejects it.
type Break struct {
	base
}

func (*Break) stmt() {}

// Continue skips to the next iteration of the innermost loop. Same
// deferred-validity note as Break.
type Continue struct {
	base
}

func (*Continue) stmt() {}

// ReadOnly marks Variable as immutable for the remainder of its scope.
type ReadOnly struct {
	base
	Variable Expr
}

func (*ReadOnly) stmt() {}

// --- Expression family (spec.md §3.2, contract with §6.3) ---

// Variable is a bare identifier reference.
type Variable struct {
	base
	Name    string
	Special bool // true for IdentifierSpecial tokens (e.g. loop-implicit names)
}

func (*Variable) expr() {}

// Literal is a constant: nil, bool, int64, float64, or string.
type Literal struct {
	base
	Value interface{}
}

func (*Literal) expr() {}

// BinaryExpression applies a binary operator to Left and Right. Op is the
// operator's source spelling ("+", "==", "and", "or", "in", ...).
type BinaryExpression struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpression) expr() {}

// UnaryExpression applies a prefix operator ("-", "!", "not").
type UnaryExpression struct {
	base
	Op      string
	Operand Expr
}

func (*UnaryExpression) expr() {}

// AssignExpression assigns Value to Target; it is itself an expression so
// it can appear as the sole content of an ExpressionStmt (e.g. front
// matter's `x = 1`, spec.md §8 scenario 3) or inside `for`-init contexts.
type AssignExpression struct {
	base
	Target Expr
	Value  Expr
}

func (*AssignExpression) expr() {}

// FunctionCall applies Target to Arguments.
type FunctionCall struct {
	base
	Target    Expr
	Arguments []Expr
}

func (*FunctionCall) expr() {}

// ArrayInitializer is an array/list literal.
type ArrayInitializer struct {
	base
	Values []Expr
}

func (*ArrayInitializer) expr() {}

// PipeCall represents `from | to(...)`: From is piped in as the implicit
// first argument of the call wrapped in To.
type PipeCall struct {
	base
	From Expr
	To   *FunctionCall
}

func (*PipeCall) expr() {}

// PathMember is one link of a VariablePath: either `.Name` or `[Index]`.
type PathMember struct {
	Name    string // set when !IsIndex
	Index   Expr   // set when IsIndex
	IsIndex bool
}

// VariablePath is a dotted/indexed member-access chain rooted at Base
// (spec.md §3.2 lists VariablePath distinctly from a bare Variable so that
// `a.b[c].d` round-trips as one chain rather than nested GetAttr nodes).
type VariablePath struct {
	base
	Base    Expr
	Members []PathMember
}

func (*VariablePath) expr() {}

// AnonymousFunction is the tail form `func(params) ... end` the expression
// entry's anonymous-function contract point produces (spec.md §4.6).
type AnonymousFunction struct {
	base
	Params []string
	Body   *Block
}

func (*AnonymousFunction) expr() {}
