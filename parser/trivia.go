package parser

import (
	"github.com/scrib-lang/scrib/ast"
	"github.com/scrib-lang/scrib/syntax"
	"github.com/scrib-lang/scrib/token"
)

// triviaManager accumulates hidden tokens into a pending list and attaches
// them to nodes as "before"/"after" trivia (spec.md §4.2).
type triviaManager struct {
	pending []ast.Trivia
}

func newTriviaManager() *triviaManager { return &triviaManager{} }

func (m *triviaManager) push(tok token.Token, span syntax.Span) {
	kind, ok := triviaKindOf(tok.Kind)
	if !ok {
		return
	}
	m.pending = append(m.pending, ast.Trivia{Kind: kind, Span: span})
}

func triviaKindOf(k token.Kind) (ast.TriviaKind, bool) {
	switch k {
	case token.Whitespace:
		return ast.TriviaWhitespace, true
	case token.Comment:
		return ast.TriviaComment, true
	case token.CommentMulti:
		return ast.TriviaCommentMulti, true
	case token.NewLine:
		return ast.TriviaNewLine, true
	case token.SemiColon:
		return ast.TriviaSemiColon, true
	default:
		return ast.TriviaWhitespace, false
	}
}

// hasPending reports whether any trivia has accumulated since the last
// flush.
func (m *triviaManager) hasPending() bool { return len(m.pending) > 0 }

// flushBefore hands the pending trivia to a node's "before" slot and
// clears it. openNode never calls this for a *ast.Block container (spec.md
// §4.2: "pending list is flushed to the node as before trivia (except for
// block statements ... pending stays intact for the first child)").
func (m *triviaManager) flushBefore(n ast.Node) {
	if len(m.pending) == 0 {
		return
	}
	if setter, ok := n.(interface{ SetBefore([]ast.Trivia) }); ok {
		setter.SetBefore(m.pending)
	}
	m.pending = nil
}

// flushAfter hands any trivia accumulated since a node's last non-trivia
// token to its "after" slot.
func (m *triviaManager) flushAfter(n ast.Node) {
	if len(m.pending) == 0 {
		return
	}
	if setter, ok := n.(interface{ SetAfter([]ast.Trivia) }); ok {
		setter.SetAfter(m.pending)
	}
	m.pending = nil
}

// discard drops pending trivia without attaching it anywhere — handleCodeExit
// calls it at every code-exit for orphaned trivia between that exit and the
// next content (spec.md §4.4 rule 5). The `{% %}{% %}` adjacency placeholder
// built later by handleCodeEnter only anchors trivia pending after that.
func (m *triviaManager) discard() { m.pending = nil }

// take removes and returns the pending trivia without attaching it to any
// node — used when the dispatcher needs to move trivia from "before" to
// "after" a synthesized Raw (spec.md §4.4 rule 3).
func (m *triviaManager) take() []ast.Trivia {
	t := m.pending
	m.pending = nil
	return t
}

// restore re-queues trivia previously removed with take, for re-attachment
// elsewhere.
func (m *triviaManager) restore(t []ast.Trivia) {
	m.pending = append(m.pending, t...)
}
