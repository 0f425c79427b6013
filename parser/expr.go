// Expression entry and the precedence-climbing expression parser
// (spec.md §4.6, §6.3). The component list treats expression parsing as
// a sibling module consumed through a narrow contract; this file is that
// sibling's concrete instance, grounded on the teacher's Pratt-style
// chain (parser/parser.go's parseOr/parseAnd/.../parsePrimary ladder)
// generalized with a pipe stage and assignment-as-expression.
package parser

import (
	"strconv"

	"github.com/scrib-lang/scrib/ast"
	"github.com/scrib-lang/scrib/lexer"
	"github.com/scrib-lang/scrib/syntax"
	"github.com/scrib-lang/scrib/token"
)

// isExpressionStart reports whether k can begin an expression (spec.md
// §4.4 rule 6 "else if expression-start").
func isExpressionStart(k token.Kind) bool {
	switch k {
	case token.Identifier, token.IdentifierSpecial, token.Integer, token.Float, token.String,
		token.LParen, token.LBracket, token.Minus, token.Bang:
		return true
	default:
		return false
	}
}

// parseExpressionStatement wraps a parsed expression as a statement
// (spec.md §3.2 ExpressionStmt), honoring the anonymous-function tail
// contract (§4.6 point 1): when the expression parser already consumed
// its own terminator, the end-of-statement check is skipped.
func (p *Parser) parseExpressionStatement(parent ast.Stmt) ast.Stmt {
	node := &ast.ExpressionStmt{}
	p.openNode(node, p.curPos())
	p.hasAnonymousFunctionTail = false
	node.Expression = p.parseExpression()
	if !p.hasAnonymousFunctionTail {
		p.expectEndOfStatement()
	}
	p.closeNode(node)
	return node
}

// expectEndOfStatement implements spec.md §4.4.3. A missing terminator is
// fatal and halts further statement production.
func (p *Parser) expectEndOfStatement() bool {
	cur := p.stream.Current()
	if p.dialect == lexer.DialectLiquid {
		if cur.Kind == token.CodeExit || (p.liquidTagSection && cur.Kind == token.LiquidTagExit) {
			return true
		}
		p.fatal(p.spanTok(cur), "expected end of statement, found "+cur.Kind.String())
		return false
	}
	switch cur.Kind {
	case token.NewLine, token.SemiColon:
		p.trivia.push(cur, p.spanTok(cur))
		p.stream.Advance()
		return true
	case token.CodeExit, token.Eof:
		return true
	}
	p.fatal(p.spanTok(cur), "expected end of statement, found "+cur.Kind.String())
	return false
}

// parseVariableName parses a bare identifier as a Variable reference
// (spec.md §4.5 "for"/"readonly" — "parse a variable").
func (p *Parser) parseVariableName() ast.Expr {
	cur := p.stream.Current()
	node := &ast.Variable{}
	p.openNode(node, p.curPos())
	if cur.Kind == token.Identifier || cur.Kind == token.IdentifierSpecial {
		node.Name = cur.Text
		node.Special = cur.Kind == token.IdentifierSpecial
		p.stream.Advance()
	} else {
		p.addError(p.spanTok(cur), "expected an identifier")
	}
	p.closeNode(node)
	return node
}

// --- Precedence-climbing expression parser (spec.md §6.3) ---
//
// Lowest to highest: assignment, pipe, logical-or, logical-and, equality,
// relational, additive, multiplicative, unary, postfix (call/member/
// index), primary.

func (p *Parser) parseExpression() ast.Expr {
	if over := p.depth.enter(); over {
		p.fatal(p.spanTok(p.stream.Current()), "expression nesting too deep")
	}
	defer p.depth.leave()
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parsePipe()
	if p.stream.Current().Kind == token.Assign {
		p.stream.Advance()
		value := p.parseAssignment()
		assign := &ast.AssignExpression{Target: left, Value: value}
		assign.Open(left.Span().Start, p.file)
		assign.Close(value.Span().End)
		return assign
	}
	return left
}

// mkBinary builds a BinaryExpression spanning from left's start to
// right's end.
func (p *Parser) mkBinary(op string, left, right ast.Expr) ast.Expr {
	bin := &ast.BinaryExpression{Op: op, Left: left, Right: right}
	bin.Open(left.Span().Start, p.file)
	bin.Close(right.Span().End)
	return bin
}

func (p *Parser) parsePipe() ast.Expr {
	left := p.parseOr()
	for p.stream.Current().Kind == token.Pipe {
		p.stream.Advance()
		callee := p.parsePostfix(p.parsePrimary())
		call, ok := callee.(*ast.FunctionCall)
		if !ok {
			call = &ast.FunctionCall{Target: callee}
			call.Open(callee.Span().Start, p.file)
			call.Close(callee.Span().End)
		}
		pc := &ast.PipeCall{From: left, To: call}
		pc.Open(left.Span().Start, p.file)
		pc.Close(call.Span().End)
		left = pc
	}
	return left
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for {
		cur := p.stream.Current()
		if cur.Kind == token.Or || (cur.Kind == token.Identifier && cur.Text == "or") {
			p.stream.Advance()
			right := p.parseAnd()
			left = p.mkBinary("or", left, right)
			continue
		}
		break
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for p.curKeywordIs("and") {
		p.stream.Advance()
		right := p.parseEquality()
		left = p.mkBinary("and", left, right)
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for {
		cur := p.stream.Current()
		if cur.Kind == token.Eq || cur.Kind == token.Ne {
			op := "=="
			if cur.Kind == token.Ne {
				op = "!="
			}
			p.stream.Advance()
			right := p.parseRelational()
			left = p.mkBinary(op, left, right)
			continue
		}
		break
	}
	return left
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	for {
		cur := p.stream.Current()
		var op string
		switch cur.Kind {
		case token.Lt:
			op = "<"
		case token.Le:
			op = "<="
		case token.Gt:
			op = ">"
		case token.Ge:
			op = ">="
		default:
			if p.curKeywordIs("in") {
				op = "in"
			}
		}
		if op == "" {
			break
		}
		p.stream.Advance()
		right := p.parseAdditive()
		left = p.mkBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for {
		cur := p.stream.Current()
		var op string
		switch cur.Kind {
		case token.Plus:
			op = "+"
		case token.Minus:
			op = "-"
		}
		if op == "" {
			break
		}
		p.stream.Advance()
		right := p.parseMultiplicative()
		left = p.mkBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for {
		cur := p.stream.Current()
		var op string
		switch cur.Kind {
		case token.Star:
			op = "*"
		case token.Slash:
			op = "/"
		case token.DoubleSlash:
			op = "//"
		case token.Percent:
			op = "%"
		}
		if op == "" {
			break
		}
		p.stream.Advance()
		right := p.parseUnary()
		left = p.mkBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	cur := p.stream.Current()
	var op string
	switch {
	case cur.Kind == token.Minus:
		op = "-"
	case cur.Kind == token.Bang:
		op = "!"
	case cur.Kind == token.Identifier && cur.Text == "not":
		op = "not"
	}
	if op != "" {
		start := p.curPos()
		p.stream.Advance()
		operand := p.parseUnary()
		node := &ast.UnaryExpression{Op: op, Operand: operand}
		node.Open(start, p.file)
		node.Close(operand.Span().End)
		return node
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) newPath(base ast.Expr) *ast.VariablePath {
	path := &ast.VariablePath{Base: base}
	path.Open(base.Span().Start, p.file)
	return path
}

// parsePostfix handles `.member`, `[index]`, and `(args)` call chains
// (spec.md §3.2 VariablePath, FunctionCall).
func (p *Parser) parsePostfix(base ast.Expr) ast.Expr {
	var path *ast.VariablePath
	for {
		cur := p.stream.Current()
		switch cur.Kind {
		case token.Dot:
			p.stream.Advance()
			name := p.stream.Current()
			if name.Kind != token.Identifier && name.Kind != token.IdentifierSpecial {
				p.addError(p.spanTok(name), "expected a member name after '.'")
				break
			}
			p.stream.Advance()
			if path == nil {
				path = p.newPath(base)
			}
			path.Members = append(path.Members, ast.PathMember{Name: name.Text})
			continue
		case token.LBracket:
			p.stream.Advance()
			p.stream.EnterAllowNewLine()
			idx := p.parseExpression()
			p.stream.LeaveAllowNewLine()
			p.expectKind(token.RBracket, "]")
			if path == nil {
				path = p.newPath(base)
			}
			path.Members = append(path.Members, ast.PathMember{Index: idx, IsIndex: true})
			continue
		case token.LParen:
			target := ast.Expr(base)
			if path != nil {
				path.Close(p.prevEndPos())
				target = path
				path = nil
			}
			start := target.Span().Start
			base = p.parseCallArgs(target, start)
			continue
		}
		break
	}
	if path != nil {
		path.Close(p.prevEndPos())
		return path
	}
	return base
}

func (p *Parser) parseCallArgs(target ast.Expr, start syntax.Position) ast.Expr {
	call := &ast.FunctionCall{Target: target}
	call.Open(start, p.file)
	p.stream.Advance() // consume '('
	p.stream.EnterAllowNewLine()
	if p.stream.Current().Kind != token.RParen {
		for {
			call.Arguments = append(call.Arguments, p.parseExpression())
			if p.stream.Current().Kind == token.Comma {
				p.stream.Advance()
				continue
			}
			break
		}
	}
	p.stream.LeaveAllowNewLine()
	p.expectKind(token.RParen, ")")
	call.Close(p.prevEndPos())
	return call
}

func (p *Parser) expectKind(k token.Kind, desc string) bool {
	if p.stream.Current().Kind == k {
		p.stream.Advance()
		return true
	}
	p.addError(p.spanTok(p.stream.Current()), "expected "+desc)
	return false
}

func (p *Parser) parsePrimary() ast.Expr {
	cur := p.stream.Current()
	switch cur.Kind {
	case token.Integer:
		n, _ := strconv.ParseInt(cur.Text, 10, 64)
		return p.literalToken(cur, n)
	case token.Float:
		f, _ := strconv.ParseFloat(cur.Text, 64)
		return p.literalToken(cur, f)
	case token.String:
		return p.literalToken(cur, cur.Text)
	case token.LParen:
		p.stream.Advance()
		p.stream.EnterAllowNewLine()
		expr := p.parseExpression()
		p.stream.LeaveAllowNewLine()
		p.expectKind(token.RParen, ")")
		return expr
	case token.LBracket:
		return p.parseArrayInitializer()
	case token.Identifier, token.IdentifierSpecial:
		return p.parseIdentifierPrimary(cur)
	default:
		p.addError(p.spanTok(cur), "unexpected token in expression: "+cur.Kind.String())
		lit := &ast.Literal{Value: nil}
		pos := p.curPos()
		lit.Open(pos, p.file)
		p.stream.Advance()
		lit.Close(p.prevEndPos())
		return lit
	}
}

// literalToken builds a Literal spanning exactly the current token and
// advances past it.
func (p *Parser) literalToken(cur token.Token, value interface{}) ast.Expr {
	lit := &ast.Literal{Value: value}
	pos := p.curPos()
	lit.Open(pos, p.file)
	p.stream.Advance()
	lit.Close(p.prevEndPos())
	return lit
}

func (p *Parser) parseArrayInitializer() ast.Expr {
	node := &ast.ArrayInitializer{}
	start := p.curPos()
	p.stream.Advance() // consume '['
	p.stream.EnterAllowNewLine()
	if p.stream.Current().Kind != token.RBracket {
		for {
			node.Values = append(node.Values, p.parseExpression())
			if p.stream.Current().Kind == token.Comma {
				p.stream.Advance()
				continue
			}
			break
		}
	}
	p.stream.LeaveAllowNewLine()
	p.expectKind(token.RBracket, "]")
	node.Open(start, p.file)
	node.Close(p.prevEndPos())
	return node
}

func (p *Parser) parseIdentifierPrimary(cur token.Token) ast.Expr {
	switch cur.Text {
	case "true":
		return p.literalToken(cur, true)
	case "false":
		return p.literalToken(cur, false)
	case "none", "null", "nil":
		return p.literalToken(cur, nil)
	case "func":
		return p.parseAnonymousFunction()
	}
	v := &ast.Variable{Name: cur.Text, Special: cur.Kind == token.IdentifierSpecial}
	pos := p.curPos()
	v.Open(pos, p.file)
	p.stream.Advance()
	v.Close(p.prevEndPos())
	return v
}

// parseAnonymousFunction implements the §4.6 anonymous-function tail:
// `func(params) ... end`. It consumes its own terminating `end`, so the
// caller must honor hasAnonymousFunctionTail and skip the normal
// end-of-statement check.
func (p *Parser) parseAnonymousFunction() ast.Expr {
	start := p.curPos()
	p.stream.Advance() // consume "func"
	node := &ast.AnonymousFunction{}
	if p.stream.Current().Kind == token.LParen {
		p.stream.Advance()
		p.stream.EnterAllowNewLine()
		if p.stream.Current().Kind != token.RParen {
			for {
				name := p.stream.Current()
				if name.Kind == token.Identifier {
					node.Params = append(node.Params, name.Text)
					p.stream.Advance()
				}
				if p.stream.Current().Kind == token.Comma {
					p.stream.Advance()
					continue
				}
				break
			}
		}
		p.stream.LeaveAllowNewLine()
		p.expectKind(token.RParen, ")")
	}
	p.expectEndOfStatement()
	fn := &ast.Function{}
	node.Body = p.parseBlock(fn, nil)
	node.Open(start, p.file)
	node.Close(p.prevEndPos())
	p.hasAnonymousFunctionTail = true
	return node
}
