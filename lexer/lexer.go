// Package lexer tokenizes template source text into the closed token kinds
// defined by package token. It is the "external collaborator" spec.md §1
// calls out as out of scope for the parser core's design, but the core
// needs a concrete instance to be a runnable whole — this one is grounded
// on the teacher's state-stack tokenizer (lexer/lexer.go: markStart/advance/
// span helpers, a pending-marker handoff between raw text and the marker
// that follows it) generalized from Jinja's single {{ }} / {% %} split to
// this engine's two dialects (spec.md §4.4, §4.4.2).
package lexer

import (
	"fmt"
	"strings"

	"github.com/scrib-lang/scrib/syntax"
	"github.com/scrib-lang/scrib/token"
)

// Lexer tokenizes source text one token at a time. It is forward-only and
// single-use, matching the consumed-iterator contract of spec.md §6.2.
type Lexer struct {
	source string
	file   string
	opts   Options

	pos  int
	line int
	col  int

	// startLine/startCol/startPos mark the beginning of the token
	// currently being scanned.
	startPos  int
	startLine int
	startCol  int

	inCode    bool // mirrors the parser's inCodeSection (spec.md §9 design note)
	liquidTag bool // true if the open code section was entered via "{%"

	pending *pendingToken
	atEOF   bool
}

type pendingToken struct {
	kind token.Kind
	text string
	// length is the number of source bytes the marker itself occupies,
	// counted from l.pos at the time the pending token was queued.
	length int
	count  int
}

// New creates a Lexer over source. file is used only for error messages;
// token spans themselves carry no file (syntax.TokenSpan), matching
// spec.md §3.1 — the caller promotes to a file-scoped syntax.Span.
func New(source, file string, opts Options) *Lexer {
	return &Lexer{
		source: source,
		file:   file,
		opts:   opts,
		line:   1,
		col:    0,
	}
}

// Error is a lexer-level failure (spec.md §6.2 "hasErrors", "errors").
type Error struct {
	Message string
	Span    syntax.TokenSpan
}

func (e *Error) Error() string { return e.Message }

func (l *Lexer) here() syntax.Position {
	return syntax.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) markStart() {
	l.startPos, l.startLine, l.startCol = l.pos, l.line, l.col
}

func (l *Lexer) span() syntax.TokenSpan {
	return syntax.TokenSpan{
		Start: syntax.Position{Offset: l.startPos, Line: l.startLine, Column: l.startCol},
		End:   l.here(),
	}
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) rest() string { return l.source[l.pos:] }

// advance consumes n bytes, updating line/col bookkeeping, and returns the
// consumed text.
func (l *Lexer) advance(n int) string {
	if l.pos+n > len(l.source) {
		n = len(l.source) - l.pos
	}
	text := l.source[l.pos : l.pos+n]
	for _, r := range text {
		if r == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
	}
	l.pos += n
	return text
}

func (l *Lexer) makeToken(kind token.Kind, text string) token.Token {
	return token.Token{Kind: kind, Span: l.span(), Text: text}
}

// SetInCode lets the front-matter controller (parser package) force the
// lexer into (or out of) code-section scanning without a CodeEnter/
// CodeExit marker ever appearing in the source — front matter is code from
// its first byte (spec.md §4.8: "set ... inCodeSection := true" happens
// before any token is read). This is the one place the parser pushes state
// into the lexer rather than the reverse (spec.md §9 design note).
func (l *Lexer) SetInCode(v bool) { l.inCode = v }

// Source returns the full backing source text (spec.md §6.2 "text: string").
func (l *Lexer) Source() string { return l.source }

// File returns the source path passed to New (spec.md §6.2 "sourcePath").
func (l *Lexer) File() string { return l.file }

// Options returns the lexer's configuration (spec.md §6.2 "options").
func (l *Lexer) Options() Options { return l.opts }

// Next returns the next token. After the final token it returns an Eof
// token forever (spec.md §3.1: "a forward-only iterator ... terminating in
// Eof").
func (l *Lexer) Next() (token.Token, error) {
	if l.atEOF {
		l.markStart()
		return l.makeToken(token.Eof, ""), nil
	}

	if l.pending != nil {
		return l.consumePending()
	}

	l.markStart()

	if l.atEnd() {
		l.atEOF = true
		return l.makeToken(token.Eof, ""), nil
	}

	if marker := l.opts.FrontMatterMarker; marker != "" && l.atLineStart() {
		if ok, length := l.matchesFrontMatterMarker(marker); ok {
			text := l.advance(length)
			return l.makeToken(token.FrontMatterMarker, text), nil
		}
	}

	if l.inCode {
		return l.lexCode()
	}
	return l.lexRaw()
}

func (l *Lexer) consumePending() (token.Token, error) {
	p := l.pending
	l.pending = nil
	l.markStart()
	text := l.advance(p.length)
	switch p.kind {
	case token.CodeEnter, token.LiquidTagEnter:
		l.inCode = true
		l.liquidTag = p.kind == token.LiquidTagEnter
	case token.CodeExit, token.LiquidTagExit:
		l.inCode = false
		l.liquidTag = false
	}
	_ = text // source bytes already accounted for by advance; p.text is the decoded literal
	tok := l.makeToken(p.kind, p.text)
	if p.kind >= token.EscapeCount1 && p.kind <= token.EscapeCount9 {
		tok.Count = p.count
	}
	return tok, nil
}

// --- Raw-mode scanning (outside a code/tag section) ---

func (l *Lexer) lexRaw() (token.Token, error) {
	rest := l.rest()
	cut := len(rest)
	foundEnter := token.Kind(-1)
	foundLen := 0
	foundEscapeRun := 0

	tryMarker := func(lit string, kind token.Kind) {
		if idx := strings.Index(rest, lit); idx >= 0 && idx < cut {
			cut = idx
			foundEnter = kind
			foundLen = len(lit)
			foundEscapeRun = countTrailingBackslashes(rest[:idx])
		}
	}

	tryMarker("{{", token.CodeEnter)
	if l.opts.Dialect == DialectLiquid {
		tryMarker("{%", token.LiquidTagEnter)
	}

	// A front matter marker appearing mid-raw-text (not at the start of a
	// line) is plain text; atLineStart cases are already handled in Next.
	if marker := l.opts.FrontMatterMarker; marker != "" {
		if idx := strings.Index(rest, "\n"+marker); idx >= 0 && idx+1 < cut {
			cut = idx + 1
			foundEnter = token.Kind(-1)
			foundLen = 0
		}
	}

	if foundEnter == token.Kind(-1) {
		// No marker ahead: the remainder of the source is raw text.
		if cut == 0 {
			l.atEOF = true
			return l.makeToken(token.Eof, ""), nil
		}
		text := l.advance(cut)
		return l.makeToken(token.Raw, text), nil
	}

	leadEnd := cut - foundEscapeRun
	if foundEscapeRun > 0 {
		// Queue the escape token for the next call; emit any raw text
		// before the backslash run now.
		escKind := token.EscapeKindForCount(foundEscapeRun)
		n := foundEscapeRun
		if n > 9 {
			n = 9
		}
		literal := strings.Repeat(`\`, foundEscapeRun-1) + rest[cut:cut+foundLen]
		l.pending = &pendingToken{kind: escKind, text: literal, length: foundEscapeRun + foundLen, count: n}
		if leadEnd == 0 {
			return l.consumePending()
		}
		text := l.advance(leadEnd)
		return l.makeToken(token.Raw, text), nil
	}

	markerText := rest[cut : cut+foundLen]
	l.pending = &pendingToken{kind: foundEnter, text: markerText, length: foundLen}
	if cut == 0 {
		return l.consumePending()
	}
	text := l.advance(cut)
	return l.makeToken(token.Raw, text), nil
}

// atLineStart reports whether the cursor sits at offset 0 or right after a
// newline — the only places a front matter marker line may begin.
func (l *Lexer) atLineStart() bool {
	if l.pos == 0 {
		return true
	}
	prev := l.source[l.pos-1]
	return prev == '\n'
}

// matchesFrontMatterMarker reports whether the cursor is sitting exactly on
// a line that is the marker (optionally followed by trailing spaces/tabs
// then a newline or EOF).
func (l *Lexer) matchesFrontMatterMarker(marker string) (bool, int) {
	rest := l.rest()
	if !strings.HasPrefix(rest, marker) {
		return false, 0
	}
	after := rest[len(marker):]
	i := 0
	for i < len(after) && (after[i] == ' ' || after[i] == '\t') {
		i++
	}
	if i == len(after) || after[i] == '\n' || after[i] == '\r' {
		return true, len(marker)
	}
	return false, 0
}

func countTrailingBackslashes(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n
}

// --- Code-mode scanning (inside {{ }} or {% %}) ---

func (l *Lexer) lexCode() (token.Token, error) {
	c := l.source[l.pos]

	switch {
	case c == '\n':
		l.advance(1)
		return l.makeToken(token.NewLine, "\n"), nil

	case c == '\r' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '\n':
		l.advance(2)
		return l.makeToken(token.NewLine, "\r\n"), nil

	case c == ' ' || c == '\t':
		n := 0
		for l.pos+n < len(l.source) && (l.source[l.pos+n] == ' ' || l.source[l.pos+n] == '\t') {
			n++
		}
		text := l.advance(n)
		return l.makeToken(token.Whitespace, text), nil

	case c == '#':
		n := 0
		for l.pos+n < len(l.source) && l.source[l.pos+n] != '\n' {
			n++
		}
		text := l.advance(n)
		return l.makeToken(token.Comment, text), nil

	case c == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '*':
		end := strings.Index(l.rest()[2:], "*/")
		n := len(l.rest())
		if end >= 0 {
			n = end + 4
		}
		text := l.advance(n)
		return l.makeToken(token.CommentMulti, text), nil

	case strings.HasPrefix(l.rest(), "}}"):
		text := l.advance(2)
		l.pending = nil
		l.inCode = false
		l.liquidTag = false
		return l.makeToken(token.CodeExit, text), nil

	case strings.HasPrefix(l.rest(), "%}") && l.opts.Dialect == DialectLiquid:
		text := l.advance(2)
		l.inCode = false
		l.liquidTag = false
		return l.makeToken(token.LiquidTagExit, text), nil

	case strings.HasPrefix(l.rest(), "||"):
		text := l.advance(2)
		return l.makeToken(token.Or, text), nil

	case c == '$' || isIdentStart(c):
		return l.lexIdentifier()

	case isDigit(c):
		return l.lexNumber()

	case c == '"' || c == '\'':
		return l.lexString(c)

	default:
		return l.lexOperator()
	}
}

func (l *Lexer) lexIdentifier() (token.Token, error) {
	special := l.source[l.pos] == '$'
	n := 0
	if special {
		n++
	}
	for l.pos+n < len(l.source) && isIdentPart(l.source[l.pos+n]) {
		n++
	}
	text := l.advance(n)
	kind := token.Identifier
	if special {
		kind = token.IdentifierSpecial
	}
	return l.makeToken(kind, text), nil
}

func (l *Lexer) lexNumber() (token.Token, error) {
	n := 0
	for l.pos+n < len(l.source) && isDigit(l.source[l.pos+n]) {
		n++
	}
	isFloat := false
	if l.pos+n < len(l.source) && l.source[l.pos+n] == '.' && l.pos+n+1 < len(l.source) && isDigit(l.source[l.pos+n+1]) {
		isFloat = true
		n++
		for l.pos+n < len(l.source) && isDigit(l.source[l.pos+n]) {
			n++
		}
	}
	text := l.advance(n)
	if isFloat {
		return l.makeToken(token.Float, text), nil
	}
	return l.makeToken(token.Integer, text), nil
}

func (l *Lexer) lexString(quote byte) (token.Token, error) {
	l.advance(1)
	var sb strings.Builder
	for {
		if l.atEnd() {
			return token.Token{}, &Error{Message: fmt.Sprintf("unterminated string literal in %s", l.file), Span: l.span()}
		}
		c := l.source[l.pos]
		if c == quote {
			l.advance(1)
			break
		}
		if c == '\\' && l.pos+1 < len(l.source) {
			l.advance(1)
			esc := l.source[l.pos]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			default:
				sb.WriteByte(esc)
			}
			l.advance(1)
			continue
		}
		sb.WriteByte(c)
		l.advance(1)
	}
	return l.makeToken(token.String, sb.String()), nil
}

var twoCharOps = map[string]token.Kind{
	"//": token.DoubleSlash,
	"==": token.Eq,
	"!=": token.Ne,
	"<=": token.Le,
	">=": token.Ge,
	"=>": token.Arrow,
}

var oneCharOps = map[byte]token.Kind{
	';': token.SemiColon,
	':': token.Colon,
	',': token.Comma,
	'.': token.Dot,
	'(': token.LParen,
	')': token.RParen,
	'[': token.LBracket,
	']': token.RBracket,
	'{': token.LBrace,
	'}': token.RBrace,
	'+': token.Plus,
	'-': token.Minus,
	'*': token.Star,
	'%': token.Percent,
	'^': token.Caret,
	'!': token.Bang,
	'=': token.Assign,
	'<': token.Lt,
	'>': token.Gt,
	'|': token.Pipe,
	'/': token.Slash,
}

func (l *Lexer) lexOperator() (token.Token, error) {
	rest := l.rest()
	if len(rest) >= 2 {
		if kind, ok := twoCharOps[rest[:2]]; ok {
			text := l.advance(2)
			return l.makeToken(kind, text), nil
		}
	}
	c := rest[0]
	if kind, ok := oneCharOps[c]; ok {
		text := l.advance(1)
		return l.makeToken(kind, text), nil
	}
	return token.Token{}, &Error{Message: fmt.Sprintf("unexpected character %q", c), Span: l.span()}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
