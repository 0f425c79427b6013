package parser

import (
	"github.com/scrib-lang/scrib/ast"
	"github.com/scrib-lang/scrib/lexer"
	"github.com/scrib-lang/scrib/syntax"
	"github.com/scrib-lang/scrib/token"
)

// tryParseStatement is the statement dispatcher's entry point (spec.md
// §4.4). It classifies the current token and routes to a statement
// parser, returning the statement produced (nil if none), whether an
// end/end<tag> matching the block stack's innermost end-expecting entry
// was just consumed, and whether the caller should keep looping.
//
// stop, when non-nil, names keyword texts ("else", "elsif", "when", ...)
// that terminate the *current* body without being consumed — the caller
// (an if/case/when chain builder) decides what to do next. The fourth
// return value carries which stop keyword was hit, or "" if none.
func (p *Parser) tryParseStatement(parent ast.Stmt, stop map[string]bool) (ast.Stmt, bool, bool, string) {
	if p.hasFatalError {
		return nil, false, false, ""
	}
	if p.queuedStmt != nil {
		s := p.queuedStmt
		p.queuedStmt = nil
		return s, false, true, ""
	}

	cur := p.stream.Current()

	switch {
	case cur.Kind == token.Eof:
		return nil, false, false, ""

	case cur.Kind == token.Raw || isEscapeKind(cur.Kind):
		return p.parseRawStatement(cur, parent)

	case cur.Kind == token.CodeEnter || cur.Kind == token.LiquidTagEnter:
		return p.handleCodeEnter(cur)

	case cur.Kind == token.FrontMatterMarker:
		return p.handleFrontMatterMarker(cur)

	case cur.Kind == token.CodeExit || cur.Kind == token.LiquidTagExit:
		return p.handleCodeExit(cur)

	case p.inCodeSection:
		return p.dispatchInCode(cur, parent, stop)

	default:
		p.addError(p.spanTok(cur), "unexpected token outside code section: "+cur.Kind.String())
		p.stream.Advance()
		return nil, false, true, ""
	}
}

func (p *Parser) dispatchInCode(cur token.Token, parent ast.Stmt, stop map[string]bool) (ast.Stmt, bool, bool, string) {
	if cur.Kind == token.NewLine || cur.Kind == token.SemiColon {
		p.trivia.push(cur, p.spanTok(cur))
		p.stream.Advance()
		return nil, false, true, ""
	}

	// spec.md §4.4.2: a Liquid object section (`{{ }}`, liquidTagSection
	// false) never dispatches keywords — every token in it is part of a
	// single expression statement, validated below.
	if p.dialect == lexer.DialectLiquid && !p.liquidTagSection {
		return p.parseLiquidObjectSection(parent), false, true, ""
	}

	switch cur.Kind {
	case token.Identifier, token.IdentifierSpecial:
		return p.dispatchKeyword(cur, parent, stop)
	default:
		if isExpressionStart(cur.Kind) {
			return p.parseExpressionStatement(parent), false, true, ""
		}
		p.addError(p.spanTok(cur), "unexpected token: "+cur.Kind.String())
		return nil, false, false, ""
	}
}

// parseLiquidObjectSection parses a Liquid object section's sole expression
// and validates it is a variable reference or pipe call (spec.md §4.4.2
// first paragraph); anything else is a structural-misuse diagnostic
// (spec.md §7 point 4).
func (p *Parser) parseLiquidObjectSection(parent ast.Stmt) ast.Stmt {
	stmt := p.parseExpressionStatement(parent)
	es, ok := stmt.(*ast.ExpressionStmt)
	if !ok {
		return stmt
	}
	switch es.Expression.(type) {
	case *ast.Variable, *ast.VariablePath, *ast.PipeCall:
	default:
		p.addError(es.Span(), "object section must be a variable path or pipe call")
	}
	return stmt
}

// parseRawStatement builds a Raw (or escape-marked Raw) statement and
// advances past it (spec.md §4.4 rule 2). Case bodies reject raw children
// silently — the token is still consumed, but no statement is returned.
func (p *Parser) parseRawStatement(cur token.Token, parent ast.Stmt) (ast.Stmt, bool, bool, string) {
	raw := &ast.Raw{}
	p.openNode(raw, p.curPos())
	p.stream.Advance()
	p.closeNode(raw)
	raw.Text = cur.Text
	if isEscapeKind(cur.Kind) {
		raw.EscapeCount = cur.Count
	}
	if _, isCase := parent.(*ast.Case); isCase {
		return nil, false, true, ""
	}
	return raw, false, true, ""
}

// handleCodeEnter implements spec.md §4.4 rule 3.
func (p *Parser) handleCodeEnter(cur token.Token) (ast.Stmt, bool, bool, string) {
	if p.inCodeSection {
		p.addError(p.spanTok(cur), "nested code section is not valid")
	}

	prevWasExit := p.stream.Previous().Kind == token.CodeExit || p.stream.Previous().Kind == token.LiquidTagExit
	boundaryPos := p.curPos()

	// Trivia pending from just before this CodeEnter would, by default,
	// flush as "before" on whichever node opens next. Per spec.md §4.4
	// rule 3, when a {% %}{% %} placeholder ends up being synthesized
	// below, that trivia belongs "after" the placeholder instead — pull it
	// aside now and only commit it once the placeholder decision is made.
	pullTrivia := p.stream.keepTrivia && (prevWasExit || p.trivia.hasPending())
	var pulled []ast.Trivia
	if pullTrivia {
		pulled = p.trivia.take()
	}

	p.inCodeSection = true
	p.liquidTagSection = cur.Kind == token.LiquidTagEnter
	p.lex.SetInCode(true)
	p.stream.Advance()

	var nop *ast.Nop
	if p.atCodeExitNow() {
		nop = &ast.Nop{}
		p.openNode(nop, p.curPos())
		p.closeNode(nop)
	}

	// A {% %}{% %} (or {{ }}{{ }}) adjacency needs a placeholder to anchor
	// trivia that would otherwise be orphaned between two immediately
	// adjacent EMPTY sections (spec.md §4.2, §4.4 rule 3, boundary
	// behavior "{% %}{% %} adjacency"). A non-empty section following a
	// code-exit (e.g. a for-loop's body statement immediately after its
	// header closes) needs no such anchor — its own statement owns
	// whatever trivia accumulates inside it.
	var synth *ast.Raw
	if nop != nil && pullTrivia {
		synth = &ast.Raw{Synthetic: ast.TriviaTypeEmpty}
		synth.Open(boundaryPos, p.file)
		synth.Close(boundaryPos)
		synth.SetAfter(pulled)
	} else if pullTrivia {
		p.trivia.restore(pulled)
	}

	switch {
	case synth != nil:
		p.queuedStmt = nop
		return synth, false, true, ""
	case nop != nil:
		return nop, false, true, ""
	default:
		return nil, false, true, ""
	}
}

func (p *Parser) atCodeExitNow() bool {
	k := p.stream.Current().Kind
	return k == token.CodeExit || k == token.LiquidTagExit
}

// handleCodeExit implements spec.md §4.4 rule 5.
func (p *Parser) handleCodeExit(cur token.Token) (ast.Stmt, bool, bool, string) {
	if !p.inCodeSection {
		p.addError(p.spanTok(cur), "code exit without a matching code enter")
	}
	p.trivia.discard()
	p.inCodeSection = false
	p.liquidTagSection = false
	p.lex.SetInCode(false)
	p.stream.Advance()
	return nil, false, true, ""
}

// handleFrontMatterMarker implements spec.md §4.4 rule 4.
func (p *Parser) handleFrontMatterMarker(cur token.Token) (ast.Stmt, bool, bool, string) {
	if !p.inFrontMatter {
		p.addError(p.spanTok(cur), "unexpected front matter marker")
		p.stream.Advance()
		return nil, false, true, ""
	}
	p.inFrontMatter = false
	p.inCodeSection = false
	p.lex.SetInCode(false)
	if p.mode == lexer.ModeFrontMatterAndContent {
		p.stream.Advance()
		return nil, true, true, ""
	}
	// ModeFrontMatterOnly: stop without consuming the marker.
	return nil, true, false, ""
}

// parseBodyUntil accumulates statements into a Block until it hits a
// matching end/end<tag> (hitEnd=true), one of the stop keywords (returned
// as stopKw, token left unconsumed), or EOF/an unrecoverable error.
func (p *Parser) parseBodyUntil(parent ast.Stmt, stop map[string]bool) (block *ast.Block, hitEnd bool, stopKw string) {
	block = &ast.Block{}
	p.openNode(block, p.curPos())
	for {
		stmt, end, cont, kw := p.tryParseStatement(parent, stop)
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if end {
			hitEnd = true
			break
		}
		if kw != "" {
			stopKw = kw
			break
		}
		if !cont {
			break
		}
	}
	p.closeNode(block)
	return block, hitEnd, stopKw
}

// parseBlock parses a simple end-only body (for/while/capture/with/wrap/
// func, and the top-level page body with parent==nil), pushing parent
// onto the block stack for the duration (spec.md §4.3) and reporting a
// recoverable "missing end" diagnostic if the body closed without one.
func (p *Parser) parseBlock(parent ast.Stmt, stop func() bool) *ast.Block {
	if parent != nil {
		p.blocks.push(parent)
	}
	block := &ast.Block{}
	p.openNode(block, p.curPos())
	for {
		if stop != nil && stop() {
			break
		}
		stmt, end, cont, _ := p.tryParseStatement(parent, nil)
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if end || !cont {
			if end {
				break
			}
			if cur := p.stream.Current(); cur.Kind != token.Eof {
				break
			}
			break
		}
	}
	if parent != nil && stop == nil {
		// Body-style callers (parseBlock used with parent != nil) always
		// expect their own end token; if we fell out on EOF/fatal
		// instead, that is the "missing end" case (spec.md §3.3, §7.3).
		if !p.blockClosedBy(parent) {
			p.reportMissingEnd(parent)
		}
	}
	if parent != nil {
		p.blocks.pop()
	}
	p.closeNode(block)
	return block
}

// blockClosedBy reports whether parent is no longer the innermost
// end-expecting statement — i.e. its end was already resolved while
// parsing the body (the common case; parseBlock's loop only breaks early
// without consuming an end on EOF or a fatal error).
func (p *Parser) blockClosedBy(parent ast.Stmt) bool {
	return p.lastEndResolvedFor == parent
}

func (p *Parser) reportMissingEnd(parent ast.Stmt) {
	p.addError(parent.Span(), "missing matching end for this statement")
}

func (p *Parser) spanTok(tok token.Token) syntax.Span {
	return syntax.FromTokenSpan(p.file, tok.Span)
}

func (p *Parser) curKeywordIs(kw string) bool {
	cur := p.stream.Current()
	return (cur.Kind == token.Identifier || cur.Kind == token.IdentifierSpecial) && cur.Text == kw
}

func isEscapeKind(k token.Kind) bool {
	return k == token.Escape || (k >= token.EscapeCount1 && k <= token.EscapeCount9)
}
