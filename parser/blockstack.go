package parser

import "github.com/scrib-lang/scrib/ast"

// blockStack is the LIFO of currently open parent statements (spec.md §4.3).
type blockStack struct {
	frames []ast.Stmt
}

func (s *blockStack) push(n ast.Stmt) { s.frames = append(s.frames, n) }

func (s *blockStack) pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *blockStack) top() ast.Stmt {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// expectsEnd reports whether n is one of the block kinds that is resolved
// by an `end`/`end<tag>` token, excluding an `If` reached via an elseif
// chain (those are chained, never separately ended — spec.md §4.3).
func expectsEnd(n ast.Stmt) bool {
	switch v := n.(type) {
	case *ast.If:
		return !v.IsElseIf
	case *ast.For, *ast.Capture, *ast.With, *ast.While, *ast.Wrap, *ast.Case, *ast.Function:
		return true
	default:
		return false
	}
}

// findFirstStatementExpectingEnd walks the stack top-down and returns the
// innermost statement that expects an `end` (spec.md §4.3).
func (s *blockStack) findFirstStatementExpectingEnd() ast.Stmt {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if expectsEnd(s.frames[i]) {
			return s.frames[i]
		}
	}
	return nil
}

// isInLoop reports whether a For or While is anywhere on the stack
// (spec.md §4.3) — break/continue validity itself is deferred to
// evaluation time (spec.md §9 open question); this helper exists for
// callers that want the loop-context query without enforcing it.
func (s *blockStack) isInLoop() bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		switch s.frames[i].(type) {
		case *ast.For, *ast.While:
			return true
		}
	}
	return false
}
