package ast

import "github.com/scrib-lang/scrib/syntax"

// TriviaKind classifies a piece of hidden-token trivia attached to a node
// (spec.md §3.1, §9).
type TriviaKind int

const (
	TriviaWhitespace TriviaKind = iota
	TriviaComment
	TriviaCommentMulti
	TriviaNewLine
	TriviaSemiColon
	TriviaEnd
	TriviaEmpty
)

// Trivia is a single hidden-token span tagged with its kind. The source
// text itself is not duplicated here — callers recover it via
// source[Span.Start.Offset:Span.End.Offset] (spec.md §9: "store the
// source-text reference by (file, offset) rather than duplicated strings").
type Trivia struct {
	Kind TriviaKind
	Span syntax.Span
}
