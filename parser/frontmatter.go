package parser

import (
	"github.com/scrib-lang/scrib/ast"
	"github.com/scrib-lang/scrib/lexer"
	"github.com/scrib-lang/scrib/token"
)

// runFrontMatterController implements spec.md §4.8's top-level mode
// switch. It returns (frontMatter, ok); ok is false only when a required
// front matter marker is missing at the very start of input.
func (p *Parser) runFrontMatterController() (*ast.Block, bool) {
	switch p.mode {
	case lexer.ModeFrontMatterOnly, lexer.ModeFrontMatterAndContent:
		if p.stream.Current().Kind != token.FrontMatterMarker {
			p.fatal(p.spanTok(p.stream.Current()), "expected a front matter marker at the start of input")
			return nil, false
		}
		p.inFrontMatter = true
		p.inCodeSection = true
		p.lex.SetInCode(true)
		p.stream.Advance()
		fm := p.parseBlock(nil, func() bool { return p.stream.Current().Kind == token.Eof })
		if p.inFrontMatter {
			p.addError(fm.Span(), "missing closing front matter marker")
			p.inFrontMatter = false
		}
		return fm, true
	case lexer.ModeScriptOnly:
		p.inCodeSection = true
		p.lex.SetInCode(true)
		return nil, true
	default:
		p.inCodeSection = false
		return nil, true
	}
}

// nudgeFrontMatterBoundary advances the body's first Raw statement past
// at most one newline (optionally preceded by spaces/tabs) immediately
// following the closing front matter marker (spec.md §3.3, §4.8).
func (p *Parser) nudgeFrontMatterBoundary(frontMatter, body *ast.Block) {
	if frontMatter == nil || body == nil || len(body.Statements) == 0 {
		return
	}
	raw, ok := body.Statements[0].(*ast.Raw)
	if !ok || raw.Synthetic == ast.TriviaTypeEmpty {
		return
	}
	text := raw.Text
	i := 0
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	var nl int
	switch {
	case i+1 < len(text) && text[i] == '\r' && text[i+1] == '\n':
		nl = 2
	case i < len(text) && text[i] == '\n':
		nl = 1
	default:
		return
	}
	cut := i + nl
	start := raw.Span().Start
	start.Offset += cut
	start.Line++
	start.Column = 0
	raw.Text = text[cut:]
	raw.AdjustStart(start)
}
