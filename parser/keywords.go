package parser

import (
	"github.com/scrib-lang/scrib/ast"
	"github.com/scrib-lang/scrib/lexer"
	"github.com/scrib-lang/scrib/token"
)

// dispatchKeyword implements spec.md §4.4.1 (default dialect) and §4.4.2
// (Liquid dialect) keyword routing. Both dialects share most constructs,
// so this single switch branches internally where the dialects diverge.
func (p *Parser) dispatchKeyword(cur token.Token, parent ast.Stmt, stop map[string]bool) (ast.Stmt, bool, bool, string) {
	kw := cur.Text
	if stop != nil && stop[kw] {
		return nil, false, true, kw
	}

	if _, isCase := parent.(*ast.Case); isCase {
		legal := kw == "when" || kw == "else" || kw == "end" ||
			kw == "case" || kw == "endcase"
		if !legal {
			p.addError(p.spanTok(cur), "unexpected statement in case body: "+kw)
		}
	}

	isLiquid := p.dialect == lexer.DialectLiquid

	// Keywords shared by both dialects (spec.md §4.4.1, §4.4.2).
	switch kw {
	case "if":
		return p.parseIf(cur, false, false), false, true, ""
	case "case":
		return p.parseCase(cur), false, true, ""
	case "when":
		return p.parseWhen(cur, parent), false, true, ""
	case "for":
		if p.peekIsDot() {
			return p.parseExpressionStatement(parent), false, true, ""
		}
		return p.parseFor(cur), false, true, ""
	case "capture":
		return p.parseCapture(cur), false, true, ""
	case "break":
		return p.parseBreak(cur), false, true, ""
	case "continue":
		return p.parseContinue(cur), false, true, ""
	case "else":
		p.addError(p.spanTok(cur), "else without a preceding if/when")
		p.stream.Advance()
		return nil, false, true, ""
	}

	// Default-dialect-only keywords (spec.md §4.4.1): not recognized in
	// Liquid, where they fall through to an ordinary expression statement.
	if !isLiquid {
		switch kw {
		case "end":
			return p.parseEnd(cur)
		case "while":
			if p.peekIsDot() {
				return p.parseExpressionStatement(parent), false, true, ""
			}
			return p.parseWhile(cur), false, true, ""
		case "with":
			return p.parseWith(cur), false, true, ""
		case "wrap":
			return p.parseWrap(cur), false, true, ""
		case "import":
			return p.parseImport(cur), false, true, ""
		case "readonly":
			return p.parseReadOnly(cur), false, true, ""
		case "func":
			return p.parseFunc(cur), false, true, ""
		case "ret":
			return p.parseReturn(cur), false, true, ""
		}
	}

	// Liquid-dialect-only keywords (spec.md §4.4.2): not recognized in the
	// Default dialect, where they fall through to an ordinary expression
	// statement (e.g. a user variable legitimately named `assign`).
	if isLiquid {
		switch kw {
		case "endif", "endunless", "endifchanged", "endfor", "endcase", "endcapture":
			return p.parseEndTag(cur, kw)
		case "unless":
			return p.parseIf(cur, false, true), false, true, ""
		case "ifchanged":
			return p.parseIfChanged(cur), false, true, ""
		case "elsif":
			p.addError(p.spanTok(cur), "elsif without a preceding if")
			p.stream.Advance()
			return nil, false, true, ""
		case "assign":
			return p.parseAssign(cur), false, true, ""
		case "cycle":
			return p.parseCycle(cur), false, true, ""
		case "increment":
			return p.parseIncDec(cur, "+"), false, true, ""
		case "decrement":
			return p.parseIncDec(cur, "-"), false, true, ""
		}
	}

	return p.parseExpressionStatement(parent), false, true, ""
}

func (p *Parser) peekIsDot() bool { return p.stream.Peek().Kind == token.Dot }

// parseEnd resolves a default-dialect `end` against the block stack
// (spec.md §4.4.1, §4.3).
func (p *Parser) parseEnd(cur token.Token) (ast.Stmt, bool, bool, string) {
	target := p.blocks.findFirstStatementExpectingEnd()
	p.stream.Advance()
	if target == nil {
		p.addError(p.spanTok(cur), "unable to find matching statement")
		return nil, false, true, ""
	}
	p.lastEndResolvedFor = target
	return nil, true, true, ""
}

var endTagExpects = map[string]func(ast.Stmt) bool{
	"endif":        func(s ast.Stmt) bool { _, ok := s.(*ast.If); return ok },
	"endunless":    func(s ast.Stmt) bool { _, ok := s.(*ast.If); return ok },
	"endifchanged": func(s ast.Stmt) bool { _, ok := s.(*ast.If); return ok },
	"endfor":       func(s ast.Stmt) bool { _, ok := s.(*ast.For); return ok },
	"endcase":      func(s ast.Stmt) bool { _, ok := s.(*ast.Case); return ok },
	"endcapture":   func(s ast.Stmt) bool { _, ok := s.(*ast.Capture); return ok },
}

// parseEndTag resolves a Liquid `end<tag>` (spec.md §4.4.2).
func (p *Parser) parseEndTag(cur token.Token, kw string) (ast.Stmt, bool, bool, string) {
	target := p.blocks.findFirstStatementExpectingEnd()
	p.stream.Advance()
	if target == nil {
		p.addError(p.spanTok(cur), "unable to find matching statement for "+kw)
		return nil, false, true, ""
	}
	if expect, ok := endTagExpects[kw]; ok && !expect(target) {
		p.addWarning(p.spanTok(cur), kw+" does not match the innermost open statement")
	}
	p.lastEndResolvedFor = target
	return nil, true, true, ""
}

// ifStop returns the keywords that terminate an if/unless's `then` (or a
// preceding elseif/elsif's) body without being consumed.
func (p *Parser) ifStop() map[string]bool {
	if p.dialect == lexer.DialectLiquid {
		return map[string]bool{"else": true, "elsif": true}
	}
	return map[string]bool{"else": true}
}

// parseIf parses `if`/`unless`/an `else if`/`elsif` continuation (spec.md
// §4.5 "if").
func (p *Parser) parseIf(cur token.Token, isElseIf, invert bool) ast.Stmt {
	node := &ast.If{IsElseIf: isElseIf, InvertCondition: invert}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Condition = p.parseExpression()
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	if !isElseIf {
		p.blocks.push(node)
	}
	then, hitEnd, stopKw := p.parseBodyUntil(node, p.ifStop())
	node.Then = then

	if !hitEnd {
		switch {
		case stopKw == "elsif":
			// parseIf consumes the `elsif` keyword itself.
			node.Else = p.parseIf(p.stream.Current(), true, false).(ast.ConditionStmt)
		case stopKw == "else":
			p.stream.Advance()
			if p.curKeywordIs("if") {
				// parseIf consumes the `if` keyword itself.
				node.Else = p.parseIf(p.stream.Current(), true, false).(ast.ConditionStmt)
			} else {
				node.Else = p.parseElseBody(node)
			}
		default:
			if !isElseIf {
				p.reportMissingEnd(node)
			}
		}
	}

	if !isElseIf {
		p.blocks.pop()
	}
	p.closeNode(node)
	return node
}

// parseElseBody parses a trailing `else` branch's body, terminated by the
// same `end`/`end<tag>` that closes the whole if- or when-chain (the chain's
// head If, or the enclosing Case for a When owner, stays on the block stack
// throughout — spec.md §4.3).
func (p *Parser) parseElseBody(owner ast.Stmt) ast.ConditionStmt {
	elseNode := &ast.Else{}
	p.openNode(elseNode, p.curPos())
	if !p.expectEndOfStatement() {
		p.closeNode(elseNode)
		return elseNode
	}
	body, hitEnd, _ := p.parseBodyUntil(owner, nil)
	elseNode.Body = body
	if !hitEnd {
		p.reportMissingEnd(owner)
	}
	p.closeNode(elseNode)
	return elseNode
}

// parseIfChanged desugars Liquid's `ifchanged` to `if (loop.changed)`
// (spec.md §4.4.2).
func (p *Parser) parseIfChanged(cur token.Token) ast.Stmt {
	node := &ast.If{}
	p.openNode(node, p.curPos())
	start := p.curPos()
	p.stream.Advance()
	end := p.prevEndPos()
	base := &ast.Variable{Name: "loop"}
	base.Open(start, p.file)
	base.Close(end)
	cond := &ast.VariablePath{Base: base, Members: []ast.PathMember{{Name: "changed"}}}
	cond.Open(start, p.file)
	cond.Close(end)
	node.Condition = cond
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	p.blocks.push(node)
	body, hitEnd, _ := p.parseBodyUntil(node, nil)
	node.Then = body
	if !hitEnd {
		p.reportMissingEnd(node)
	}
	p.blocks.pop()
	p.closeNode(node)
	return node
}

// parseFor parses `for <var> in <iterator>` (spec.md §4.5 "for").
func (p *Parser) parseFor(cur token.Token) ast.Stmt {
	node := &ast.For{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Variable = p.parseVariableName()
	if !p.curKeywordIs("in") {
		p.addError(p.spanTok(p.stream.Current()), "expected 'in' in for loop")
	} else {
		p.stream.Advance()
	}
	node.Iterator = p.parseExpression()
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	node.Body = p.parseBlock(node, nil)
	p.closeNode(node)
	return node
}

// parseWhile parses `while <condition>` (spec.md §4.5 "while").
func (p *Parser) parseWhile(cur token.Token) ast.Stmt {
	node := &ast.While{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Condition = p.parseExpression()
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	node.Body = p.parseBlock(node, nil)
	p.closeNode(node)
	return node
}

// parseCase parses `case <value>`; its body is filtered to a single
// head When/Else chain (spec.md §3.3, §4.5 "case").
func (p *Parser) parseCase(cur token.Token) ast.Stmt {
	node := &ast.Case{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Value = p.parseExpression()
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	p.blocks.push(node)
	node.Body = p.parseCaseChain(node)
	p.blocks.pop()
	p.closeNode(node)
	return node
}

// parseCaseChain parses the single chained When/Else entry that is a
// Case's only direct body child (spec.md §3.2, §8 scenario 5).
func (p *Parser) parseCaseChain(owner *ast.Case) *ast.Block {
	block := &ast.Block{}
	p.openNode(block, p.curPos())
	for {
		stmt, end, cont, _ := p.tryParseStatement(owner, nil)
		if end {
			break
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
			break // a head When/Else was parsed; it chains the rest via Next.
		}
		if !cont {
			p.reportMissingEnd(owner)
			break
		}
	}
	p.closeNode(block)
	return block
}

// parseWhen parses a `when` branch and recursively chains the next
// `when`/`else`/`end` into Next (spec.md §4.5 "when").
func (p *Parser) parseWhen(cur token.Token, parent ast.Stmt) ast.Stmt {
	if _, ok := parent.(*ast.Case); !ok {
		if _, ok := parent.(*ast.When); !ok {
			p.addError(p.spanTok(cur), "when without a preceding case")
		}
	}
	node := &ast.When{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Values = p.parseWhenValues()
	if len(node.Values) == 0 {
		p.addError(node.Span(), "when requires at least one value")
	}
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	body, hitEnd, stopKw := p.parseBodyUntil(node, map[string]bool{"when": true, "else": true})
	node.Body = body
	if !hitEnd {
		switch stopKw {
		case "when":
			// parseWhen consumes the `when` keyword itself.
			node.Next = p.parseWhen(p.stream.Current(), node).(ast.ConditionStmt)
		case "else":
			p.stream.Advance()
			node.Next = p.parseElseBody(node)
		default:
			p.reportMissingEnd(node)
		}
	}
	p.closeNode(node)
	return node
}

func (p *Parser) parseWhenValues() []ast.Expr {
	var values []ast.Expr
	for {
		values = append(values, p.parseExpression())
		cur := p.stream.Current()
		if cur.Kind == token.Comma || cur.Kind == token.Or {
			p.stream.Advance()
			continue
		}
		if p.curKeywordIs("or") {
			p.stream.Advance()
			continue
		}
		break
	}
	return values
}

// parseCapture parses `capture <target>` (spec.md §4.5 "capture").
func (p *Parser) parseCapture(cur token.Token) ast.Stmt {
	node := &ast.Capture{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Target = p.parseExpression()
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	node.Body = p.parseBlock(node, nil)
	p.closeNode(node)
	return node
}

// parseWith parses `with <name>` (spec.md §4.5 "with").
func (p *Parser) parseWith(cur token.Token) ast.Stmt {
	node := &ast.With{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Name = p.parseExpression()
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	node.Body = p.parseBlock(node, nil)
	p.closeNode(node)
	return node
}

// parseWrap parses `wrap <target>` (spec.md §4.5 "wrap").
func (p *Parser) parseWrap(cur token.Token) ast.Stmt {
	node := &ast.Wrap{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Target = p.parseExpression()
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	node.Body = p.parseBlock(node, nil)
	p.closeNode(node)
	return node
}

// parseImport parses `import <expr>` (spec.md §4.5 "import"), no body.
func (p *Parser) parseImport(cur token.Token) ast.Stmt {
	node := &ast.Import{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Expression = p.parseExpression()
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}

// parseReadOnly parses `readonly <variable>` (spec.md §4.5 "readonly").
func (p *Parser) parseReadOnly(cur token.Token) ast.Stmt {
	node := &ast.ReadOnly{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	node.Variable = p.parseVariableName()
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}

// parseFunc parses named or anonymous `func` declarations (spec.md §4.5
// "func").
func (p *Parser) parseFunc(cur token.Token) ast.Stmt {
	node := &ast.Function{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	if c := p.stream.Current(); c.Kind == token.Identifier {
		node.Name = c.Text
		p.stream.Advance()
	}
	if !p.expectEndOfStatement() {
		p.closeNode(node)
		return node
	}
	node.Body = p.parseBlock(node, nil)
	p.closeNode(node)
	return node
}

// parseReturn parses `ret [expr]` (spec.md §4.5 "ret").
func (p *Parser) parseReturn(cur token.Token) ast.Stmt {
	node := &ast.Return{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	if isExpressionStart(p.stream.Current().Kind) {
		node.Expression = p.parseExpression()
	}
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}

// parseBreak/parseContinue parse the bare loop-control keywords (spec.md
// §4.5). Validity outside a loop is deferred to evaluation time
// (spec.md §9 open question) — the parser never rejects them here.
func (p *Parser) parseBreak(cur token.Token) ast.Stmt {
	node := &ast.Break{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}

func (p *Parser) parseContinue(cur token.Token) ast.Stmt {
	node := &ast.Continue{}
	p.openNode(node, p.curPos())
	p.stream.Advance()
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}

// parseAssign parses Liquid's `assign <target> = <value>` (spec.md §4.5
// "Liquid assign").
func (p *Parser) parseAssign(cur token.Token) ast.Stmt {
	p.trivia.discard()
	p.stream.Advance()
	expr := p.parseExpression()
	if _, ok := expr.(*ast.AssignExpression); !ok {
		p.addError(p.spanTok(cur), "assign requires an assignment expression")
	}
	node := &ast.ExpressionStmt{}
	node.Open(p.spanTok(cur).Start, p.file)
	node.Expression = expr
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}

// parseCycle parses Liquid's `cycle [group:] value, value, ...` (spec.md
// §4.5 "Liquid cycle").
func (p *Parser) parseCycle(cur token.Token) ast.Stmt {
	startPos := p.curPos()
	p.stream.Advance()
	afterKw := p.prevEndPos()

	target := &ast.Variable{Name: "cycle"}
	target.Open(startPos, p.file)
	target.Close(afterKw)
	call := &ast.FunctionCall{Target: target}
	call.Open(startPos, p.file)

	if p.isCycleGroupLabel() {
		group := p.parseExpression()
		if p.stream.Current().Kind == token.Colon {
			p.stream.Advance()
		}
		call.Arguments = append(call.Arguments, group)
	}
	arrStart := p.curPos()
	arr := &ast.ArrayInitializer{}
	for {
		arr.Values = append(arr.Values, p.parseExpression())
		if p.stream.Current().Kind == token.Comma {
			p.stream.Advance()
			continue
		}
		break
	}
	arr.Open(arrStart, p.file)
	arr.Close(p.prevEndPos())
	call.Arguments = append(call.Arguments, arr)
	call.Close(p.prevEndPos())

	node := &ast.ExpressionStmt{}
	node.Open(startPos, p.file)
	node.Expression = call
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}

// isCycleGroupLabel is a shallow lookahead: a cycle group label is a
// single value immediately followed by `:`.
func (p *Parser) isCycleGroupLabel() bool {
	switch p.stream.Current().Kind {
	case token.Identifier, token.IdentifierSpecial, token.String, token.Integer:
		return p.stream.Peek().Kind == token.Colon
	default:
		return false
	}
}

// parseIncDec desugars Liquid's `increment`/`decrement` to `var = var ± 1`
// (spec.md §4.5).
func (p *Parser) parseIncDec(cur token.Token, op string) ast.Stmt {
	p.stream.Advance()
	target := p.parseVariableName()
	one := &ast.Literal{Value: int64(1)}
	one.Open(target.Span().End, p.file)
	one.Close(target.Span().End)
	bin := p.mkBinary(op, target, one)
	assign := &ast.AssignExpression{Target: target, Value: bin}
	assign.Open(target.Span().Start, p.file)
	assign.Close(bin.Span().End)
	node := &ast.ExpressionStmt{}
	node.Open(p.spanTok(cur).Start, p.file)
	node.Expression = assign
	p.expectEndOfStatement()
	p.closeNode(node)
	return node
}
