// Package parser implements the hand-written, state-driven recursive-
// descent builder described by spec.md: it consumes a lexed token stream
// (via the token stream adapter in stream.go) and emits a typed ast.Node
// tree, interleaving raw/code modes, maintaining a block stack for `end`
// resolution, attaching trivia for lossless round-tripping, and supporting
// both the Default and Liquid dialects in one engine.
//
// Grounded on the teacher's parser/parser.go (Parser struct holding
// position/depth/filename state, a flat subparse loop dispatching on
// keyword, Span-returning node lifecycle), generalized from Jinja's single
// dialect and single code-delimiter pair to spec.md's two dialects and
// trivia-preserving AST.
package parser

import (
	"github.com/scrib-lang/scrib/ast"
	"github.com/scrib-lang/scrib/lexer"
	"github.com/scrib-lang/scrib/syntax"
	"github.com/scrib-lang/scrib/token"
)

// ParserOptions configures a Parser (spec.md §6.1).
type ParserOptions struct {
	ExpressionDepthLimit     int
	LiquidFunctionsToScriban bool
}

// Parser parses a single source, driven by a Lexer it owns. A Parser
// instance is single-use: one Run() call produces one ast.ScriptPage
// (spec.md §3.4, §5).
type Parser struct {
	lex    *lexer.Lexer
	stream *stream
	trivia *triviaManager
	blocks *blockStack
	depth  *depthLimiter

	file    string
	dialect lexer.Dialect
	mode    lexer.ParseMode
	opts    ParserOptions

	inCodeSection    bool
	liquidTagSection bool
	inFrontMatter    bool

	// queuedStmt holds a second statement produced by a single dispatch
	// step (spec.md §4.4 rule 3: "if a raw statement was synthesized, the
	// stream emits both in order") for the next tryParseStatement call.
	queuedStmt ast.Stmt

	// hasAnonymousFunctionTail is set by parseAnonymousFunction when its
	// tail already consumed the closing `end` (spec.md §4.6 point 1);
	// parseExpressionStatement checks it to skip the normal
	// end-of-statement requirement.
	hasAnonymousFunctionTail bool

	// lastEndResolvedFor records which block-bearing statement the most
	// recently consumed end/end<tag> token closed, so parseBlock can tell
	// a clean close apart from falling out on EOF/fatal (spec.md §3.3).
	lastEndResolvedFor ast.Stmt

	messages      []LogMessage
	hasErrors     bool
	hasFatalError bool
}

// New constructs a Parser over lex with the given options.
func New(lex *lexer.Lexer, opts ParserOptions) *Parser {
	trivia := newTriviaManager()
	p := &Parser{
		lex:     lex,
		trivia:  trivia,
		blocks:  &blockStack{},
		depth:   newDepthLimiter(opts.ExpressionDepthLimit),
		file:    lex.File(),
		dialect: lex.Options().Dialect,
		mode:    lex.Options().Mode,
		opts:    opts,
	}
	p.stream = newStream(lex, trivia)
	return p
}

// Messages returns the diagnostics accumulated during Run().
func (p *Parser) Messages() []LogMessage { return p.messages }

// HasErrors reports whether Run() logged at least one error.
func (p *Parser) HasErrors() bool { return p.hasErrors }

// Run parses the configured source and returns the page, or nil if any
// error was logged (spec.md §6.1 "Run() → Page?").
func (p *Parser) Run() *ast.ScriptPage {
	page := &ast.ScriptPage{}
	p.openNode(page, p.curPos())

	frontMatter, ok := p.runFrontMatterController()
	if !ok {
		p.closeNode(page)
		return nil
	}
	page.FrontMatter = frontMatter

	body := p.parseBlock(nil, func() bool { return p.stream.Current().Kind == token.Eof })
	p.nudgeFrontMatterBoundary(frontMatter, body)
	page.Body = body

	p.flushLexerErrors()
	p.closeNode(page)

	if p.hasErrors {
		return nil
	}
	return page
}

func (p *Parser) curPos() syntax.Position {
	ts := p.stream.Current().Span
	return syntax.Position{Offset: ts.Start.Offset, Line: ts.Start.Line, Column: ts.Start.Column}
}

func (p *Parser) prevEndPos() syntax.Position {
	ts := p.stream.Previous().Span
	return syntax.Position{Offset: ts.End.Offset, Line: ts.End.Line, Column: ts.End.Column}
}

// openNode starts a node's lifecycle (spec.md §3.4) and flushes pending
// trivia to it as "before" trivia, unless n is a block container (those
// never carry trivia directly — spec.md §4.2).
func (p *Parser) openNode(n ast.Node, start syntax.Position) {
	type opener interface{ Open(syntax.Position, string) }
	n.(opener).Open(start, p.file)
	if _, isBlock := n.(*ast.Block); !isBlock {
		p.trivia.flushBefore(n)
	}
}

// closeNode ends a node's lifecycle, attaching any trivia accumulated
// since its last non-trivia token as "after" trivia.
func (p *Parser) closeNode(n ast.Node) {
	type closer interface{ Close(syntax.Position) }
	n.(closer).Close(p.prevEndPos())
	if _, isBlock := n.(*ast.Block); !isBlock {
		p.trivia.flushAfter(n)
	}
}

func (p *Parser) flushLexerErrors() {
	// The lexer surfaces its own failures through Next()'s error return;
	// stream.go records the first one seen. Promote it here so Run()
	// reflects spec.md §7 point 7 ("lexer errors: flushed into parser
	// messages at end of Run()").
	if p.stream.lexErr != nil {
		p.addError(syntax.Span{File: p.file}, p.stream.lexErr.Error())
	}
}
