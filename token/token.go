// Package token defines the closed token-kind enumeration produced by the
// lexer and consumed by the parser's token stream adapter.
package token

import (
	"fmt"

	"github.com/scrib-lang/scrib/syntax"
)

// Kind is the type of a lexed token.
type Kind int

const (
	Eof Kind = iota

	// Raw / escape / mode-switch tokens.
	Raw
	Escape
	EscapeCount1
	EscapeCount2
	EscapeCount3
	EscapeCount4
	EscapeCount5
	EscapeCount6
	EscapeCount7
	EscapeCount8
	EscapeCount9
	CodeEnter
	CodeExit
	LiquidTagEnter
	LiquidTagExit
	FrontMatterMarker

	// Names.
	Identifier
	IdentifierSpecial

	// Separators / trivia-eligible tokens.
	NewLine
	SemiColon
	Colon
	Comma
	Dot
	Or
	Comment
	CommentMulti
	Whitespace

	// Literals.
	Integer
	Float
	String

	// Brackets.
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace

	// Operators.
	Plus
	Minus
	Star
	Slash
	DoubleSlash
	Percent
	Caret
	Bang
	Assign
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Pipe
	Arrow
)

var names = map[Kind]string{
	Eof:                "EOF",
	Raw:                "raw text",
	Escape:             "escape",
	EscapeCount1:       "escape(1)",
	EscapeCount2:       "escape(2)",
	EscapeCount3:       "escape(3)",
	EscapeCount4:       "escape(4)",
	EscapeCount5:       "escape(5)",
	EscapeCount6:       "escape(6)",
	EscapeCount7:       "escape(7)",
	EscapeCount8:       "escape(8)",
	EscapeCount9:       "escape(9)",
	CodeEnter:          "code enter",
	CodeExit:           "code exit",
	LiquidTagEnter:     "liquid tag enter",
	LiquidTagExit:      "liquid tag exit",
	FrontMatterMarker:  "front matter marker",
	Identifier:         "identifier",
	IdentifierSpecial:  "special identifier",
	NewLine:            "newline",
	SemiColon:          "`;`",
	Colon:              "`:`",
	Comma:              "`,`",
	Dot:                "`.`",
	Or:                 "`||`",
	Comment:            "comment",
	CommentMulti:       "block comment",
	Whitespace:         "whitespace",
	Integer:            "integer literal",
	Float:              "float literal",
	String:             "string literal",
	LParen:             "`(`",
	RParen:             "`)`",
	LBracket:           "`[`",
	RBracket:           "`]`",
	LBrace:             "`{`",
	RBrace:             "`}`",
	Plus:               "`+`",
	Minus:              "`-`",
	Star:               "`*`",
	Slash:              "`/`",
	DoubleSlash:        "`//`",
	Percent:            "`%`",
	Caret:              "`^`",
	Bang:               "`!`",
	Assign:             "`=`",
	Eq:                 "`==`",
	Ne:                 "`!=`",
	Lt:                 "`<`",
	Le:                 "`<=`",
	Gt:                 "`>`",
	Ge:                 "`>=`",
	Pipe:               "`|`",
	Arrow:              "`=>`",
}

func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Hidden tokens are never surfaced to the statement dispatcher; they are
// routed to the trivia manager instead (spec.md §3.1, §4.1). NewLine is
// hidden only when the parser's allowNewLine counter is above zero — that
// condition is evaluated by the token stream adapter, not here.
func (k Kind) AlwaysHidden() bool {
	switch k {
	case Comment, CommentMulti, Whitespace:
		return true
	default:
		return false
	}
}

// Token is a single lexed unit: a kind plus the source range it covers.
type Token struct {
	Kind  Kind
	Span  syntax.TokenSpan
	Text  string // raw source text, or the decoded value for String and EscapeCount1..9
	Count int    // escape repeat count for EscapeCount1..9 (1..9), else 0
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

// EscapeKindForCount maps a backslash-repeat count (1..9) to its token kind.
// Counts above 9 saturate at EscapeCount9 (spec.md §3.1 only enumerates
// EscapeCount1..EscapeCount9).
func EscapeKindForCount(n int) Kind {
	if n < 1 {
		n = 1
	}
	if n > 9 {
		n = 9
	}
	return EscapeCount1 + Kind(n-1)
}
