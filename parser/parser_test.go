package parser

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/scrib-lang/scrib/ast"
	"github.com/scrib-lang/scrib/lexer"
)

func parse(t *testing.T, src string, opts lexer.Options, pOpts ParserOptions) (*ast.ScriptPage, *Parser) {
	t.Helper()
	lex := lexer.New(src, "test.tpl", opts)
	p := New(lex, pOpts)
	page := p.Run()
	return page, p
}

func defaultDialect() lexer.Options {
	o := lexer.DefaultOptions()
	o.Dialect = lexer.DialectDefault
	return o
}

func liquidDialect() lexer.Options {
	o := lexer.DefaultOptions()
	o.Dialect = lexer.DialectLiquid
	return o
}

// astEqual compares two AST values structurally, including each node's
// unexported embedded base (its span and trivia), which go-cmp only
// traverses into when an Exporter allows it.
func astEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmp.Exporter(func(reflect.Type) bool { return true })); diff != "" {
		t.Errorf("AST mismatch (-want +got):\n%s", diff)
	}
}

// Scenario 1 (spec.md §8): "Hello {{ name }} World".
func TestParser_RawExpressionRaw(t *testing.T) {
	page, p := parse(t, "Hello {{ name }} World", defaultDialect(), ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	if len(page.Body.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d: %#v", len(page.Body.Statements), page.Body.Statements)
	}
	raw1, ok := page.Body.Statements[0].(*ast.Raw)
	if !ok || raw1.Text != "Hello " {
		t.Fatalf("statement 0: expected Raw(\"Hello \"), got %#v", page.Body.Statements[0])
	}
	stmt, ok := page.Body.Statements[1].(*ast.ExpressionStmt)
	if !ok {
		t.Fatalf("statement 1: expected ExpressionStmt, got %#v", page.Body.Statements[1])
	}
	v, ok := stmt.Expression.(*ast.Variable)
	if !ok || v.Name != "name" {
		t.Fatalf("statement 1: expected Variable(\"name\"), got %#v", stmt.Expression)
	}
	raw2, ok := page.Body.Statements[2].(*ast.Raw)
	if !ok || raw2.Text != " World" {
		t.Fatalf("statement 2: expected Raw(\" World\"), got %#v", page.Body.Statements[2])
	}
}

// Scenario 2 (spec.md §8): Liquid if/else.
func TestParser_LiquidIfElse(t *testing.T) {
	page, p := parse(t, "{% if a %}X{% else %}Y{% endif %}", liquidDialect(), ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	if len(page.Body.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(page.Body.Statements))
	}
	ifNode, ok := page.Body.Statements[0].(*ast.If)
	if !ok {
		t.Fatalf("expected If, got %#v", page.Body.Statements[0])
	}
	cond, ok := ifNode.Condition.(*ast.Variable)
	if !ok || cond.Name != "a" {
		t.Fatalf("expected condition Variable(\"a\"), got %#v", ifNode.Condition)
	}
	if len(ifNode.Then.Statements) != 1 {
		t.Fatalf("expected then-body with 1 statement, got %d", len(ifNode.Then.Statements))
	}
	thenRaw, ok := ifNode.Then.Statements[0].(*ast.Raw)
	if !ok || thenRaw.Text != "X" {
		t.Fatalf("expected then-body Raw(\"X\"), got %#v", ifNode.Then.Statements[0])
	}
	elseNode, ok := ifNode.Else.(*ast.Else)
	if !ok {
		t.Fatalf("expected Else, got %#v", ifNode.Else)
	}
	if len(elseNode.Body.Statements) != 1 {
		t.Fatalf("expected else-body with 1 statement, got %d", len(elseNode.Body.Statements))
	}
	elseRaw, ok := elseNode.Body.Statements[0].(*ast.Raw)
	if !ok || elseRaw.Text != "Y" {
		t.Fatalf("expected else-body Raw(\"Y\"), got %#v", elseNode.Body.Statements[0])
	}
}

// Scenario 3 (spec.md §8): front matter + boundary nudge.
func TestParser_FrontMatterAndContent(t *testing.T) {
	opts := defaultDialect()
	opts.Mode = lexer.ModeFrontMatterAndContent
	opts.FrontMatterMarker = "+++"
	page, p := parse(t, "+++\nx = 1\n+++\nHello", opts, ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	if len(page.FrontMatter.Statements) != 1 {
		t.Fatalf("expected 1 front matter statement, got %d", len(page.FrontMatter.Statements))
	}
	fmStmt, ok := page.FrontMatter.Statements[0].(*ast.ExpressionStmt)
	if !ok {
		t.Fatalf("expected ExpressionStmt, got %#v", page.FrontMatter.Statements[0])
	}
	assign, ok := fmStmt.Expression.(*ast.AssignExpression)
	if !ok {
		t.Fatalf("expected AssignExpression, got %#v", fmStmt.Expression)
	}
	target, ok := assign.Target.(*ast.Variable)
	if !ok || target.Name != "x" {
		t.Fatalf("expected assign target Variable(\"x\"), got %#v", assign.Target)
	}
	lit, ok := assign.Value.(*ast.Literal)
	if !ok || lit.Value != int64(1) {
		t.Fatalf("expected assign value Literal(1), got %#v", assign.Value)
	}
	if len(page.Body.Statements) == 0 {
		t.Fatalf("expected a body statement")
	}
	bodyRaw, ok := page.Body.Statements[0].(*ast.Raw)
	if !ok {
		t.Fatalf("expected body Raw, got %#v", page.Body.Statements[0])
	}
	if bodyRaw.Text != "Hello" {
		t.Fatalf("expected nudged body text %q, got %q", "Hello", bodyRaw.Text)
	}
}

// Scenario 4 (spec.md §8): for loop over an array literal, Default dialect.
func TestParser_ForOverArrayLiteral(t *testing.T) {
	page, p := parse(t, "{{ for x in [1,2,3] }}{{ x }}{{ end }}", defaultDialect(), ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	if len(page.Body.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(page.Body.Statements))
	}
	forNode, ok := page.Body.Statements[0].(*ast.For)
	if !ok {
		t.Fatalf("expected For, got %#v", page.Body.Statements[0])
	}
	v, ok := forNode.Variable.(*ast.Variable)
	if !ok || v.Name != "x" {
		t.Fatalf("expected loop variable Variable(\"x\"), got %#v", forNode.Variable)
	}
	arr, ok := forNode.Iterator.(*ast.ArrayInitializer)
	if !ok || len(arr.Values) != 3 {
		t.Fatalf("expected Array[1,2,3], got %#v", forNode.Iterator)
	}
	for i, want := range []int64{1, 2, 3} {
		lit, ok := arr.Values[i].(*ast.Literal)
		if !ok || lit.Value != want {
			t.Fatalf("array element %d: expected Literal(%d), got %#v", i, want, arr.Values[i])
		}
	}
	if len(forNode.Body.Statements) != 1 {
		t.Fatalf("expected for-body with 1 statement, got %d", len(forNode.Body.Statements))
	}
	bodyStmt, ok := forNode.Body.Statements[0].(*ast.ExpressionStmt)
	if !ok {
		t.Fatalf("expected ExpressionStmt, got %#v", forNode.Body.Statements[0])
	}
	bodyVar, ok := bodyStmt.Expression.(*ast.Variable)
	if !ok || bodyVar.Name != "x" {
		t.Fatalf("expected body Variable(\"x\"), got %#v", bodyStmt.Expression)
	}
}

// Scenario 5 (spec.md §8): case/when/else chaining, filtering non-When/Else
// children from Case's body.
func TestParser_CaseWhenElseChain(t *testing.T) {
	page, p := parse(t, "{% case a %}{% when 1,2 %}A{% when 3 %}B{% else %}C{% endcase %}", liquidDialect(), ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	if len(page.Body.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(page.Body.Statements))
	}
	caseNode, ok := page.Body.Statements[0].(*ast.Case)
	if !ok {
		t.Fatalf("expected Case, got %#v", page.Body.Statements[0])
	}
	if v, ok := caseNode.Value.(*ast.Variable); !ok || v.Name != "a" {
		t.Fatalf("expected Case value Variable(\"a\"), got %#v", caseNode.Value)
	}
	if len(caseNode.Body.Statements) != 1 {
		t.Fatalf("expected exactly 1 direct body child (the head When), got %d", len(caseNode.Body.Statements))
	}
	when1, ok := caseNode.Body.Statements[0].(*ast.When)
	if !ok {
		t.Fatalf("expected When, got %#v", caseNode.Body.Statements[0])
	}
	if len(when1.Values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(when1.Values))
	}
	if lit, ok := when1.Values[0].(*ast.Literal); !ok || lit.Value != int64(1) {
		t.Fatalf("expected first when value Literal(1), got %#v", when1.Values[0])
	}
	if raw, ok := when1.Body.Statements[0].(*ast.Raw); !ok || raw.Text != "A" {
		t.Fatalf("expected when1 body Raw(\"A\"), got %#v", when1.Body.Statements[0])
	}
	when2, ok := when1.Next.(*ast.When)
	if !ok {
		t.Fatalf("expected chained When, got %#v", when1.Next)
	}
	if len(when2.Values) != 1 {
		t.Fatalf("expected 1 value, got %d", len(when2.Values))
	}
	if raw, ok := when2.Body.Statements[0].(*ast.Raw); !ok || raw.Text != "B" {
		t.Fatalf("expected when2 body Raw(\"B\"), got %#v", when2.Body.Statements[0])
	}
	elseNode, ok := when2.Next.(*ast.Else)
	if !ok {
		t.Fatalf("expected chained Else, got %#v", when2.Next)
	}
	if raw, ok := elseNode.Body.Statements[0].(*ast.Raw); !ok || raw.Text != "C" {
		t.Fatalf("expected else body Raw(\"C\"), got %#v", elseNode.Body.Statements[0])
	}
}

// Scenario 6 (spec.md §8): a bare `end` with nothing open is an error and
// Run() returns nil.
func TestParser_BareEndIsError(t *testing.T) {
	page, p := parse(t, "{{ end }}", defaultDialect(), ParserOptions{})
	if page != nil {
		t.Fatalf("expected Run() to return nil, got %#v", page)
	}
	if !p.HasErrors() {
		t.Fatalf("expected an error")
	}
	found := false
	for _, m := range p.Messages() {
		if m.Kind == KindError && m.Text == "unable to find matching statement" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected \"unable to find matching statement\" among %v", p.Messages())
	}
}

// Boundary behavior (spec.md §8): empty input parses to an empty body with
// no errors under Default mode.
func TestParser_EmptyInput(t *testing.T) {
	page, p := parse(t, "", defaultDialect(), ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	if len(page.Body.Statements) != 0 {
		t.Fatalf("expected empty body, got %#v", page.Body.Statements)
	}
}

// Boundary behavior: input beginning with a code-exit alone is an error.
func TestParser_LeadingCodeExitIsError(t *testing.T) {
	_, p := parse(t, "}}", defaultDialect(), ParserOptions{})
	if !p.HasErrors() {
		t.Fatalf("expected an error for a leading code exit")
	}
}

// Boundary behavior: {% %}{% %} adjacency synthesizes an empty-trivia Raw
// between two Nop statements.
func TestParser_AdjacentEmptyTagsSynthesizeRaw(t *testing.T) {
	page, p := parse(t, "{% %}{% %}", liquidDialect(), ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	if len(page.Body.Statements) != 3 {
		t.Fatalf("expected 3 statements (Nop, Raw, Nop), got %d: %#v", len(page.Body.Statements), page.Body.Statements)
	}
	if _, ok := page.Body.Statements[0].(*ast.Nop); !ok {
		t.Fatalf("statement 0: expected Nop, got %#v", page.Body.Statements[0])
	}
	raw, ok := page.Body.Statements[1].(*ast.Raw)
	if !ok {
		t.Fatalf("statement 1: expected synthesized Raw, got %#v", page.Body.Statements[1])
	}
	if raw.Synthetic != ast.TriviaTypeEmpty {
		t.Fatalf("expected synthesized Raw to be marked TriviaTypeEmpty, got %v", raw.Synthetic)
	}
	if _, ok := page.Body.Statements[2].(*ast.Nop); !ok {
		t.Fatalf("statement 2: expected Nop, got %#v", page.Body.Statements[2])
	}
}

// Boundary behavior: a depth-limit breach emits exactly one depth-limit
// error, not one per further nesting level.
func TestParser_DepthLimitBreachIsSingleShot(t *testing.T) {
	src := "{{ " + nestedParens(20) + "1" + closeParens(20) + " }}"
	_, p := parse(t, src, defaultDialect(), ParserOptions{ExpressionDepthLimit: 5})
	count := 0
	for _, m := range p.Messages() {
		if m.Kind == KindError && m.Text == "expression nesting too deep" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 depth-limit error, got %d (messages: %v)", count, p.Messages())
	}
}

func nestedParens(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "("
	}
	return s
}

func closeParens(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ")"
	}
	return s
}

// Every AST node's span.start must not be after its span.end, and spans
// must be non-decreasing across statements in a block (spec.md §8).
func TestParser_SpansAreWellFormed(t *testing.T) {
	src := "Hello {% if a %}{{ (1 + 2 * 3) | abs }}{% else %}{{ -x | upper }}{% endif %} bye"
	page, p := parse(t, src, liquidDialect(), ParserOptions{})
	if p.HasErrors() || page == nil {
		t.Fatalf("unexpected errors: %v", p.Messages())
	}
	checkSpansWellFormed(t, page)
}

func checkSpansWellFormed(t *testing.T, n ast.Node) {
	t.Helper()
	span := n.Span()
	if span.Start.Offset > span.End.Offset {
		t.Errorf("node %T has span.start (%d) > span.end (%d)", n, span.Start.Offset, span.End.Offset)
	}
	switch v := n.(type) {
	case *ast.ScriptPage:
		if v.FrontMatter != nil {
			checkSpansWellFormed(t, v.FrontMatter)
		}
		checkSpansWellFormed(t, v.Body)
	case *ast.Block:
		prevEnd := -1
		for _, s := range v.Statements {
			if s.Span().Start.Offset < prevEnd {
				t.Errorf("statement %T starts before the previous statement ended", s)
			}
			prevEnd = s.Span().End.Offset
			checkSpansWellFormed(t, s)
		}
	case *ast.If:
		checkSpansWellFormed(t, v.Condition)
		checkSpansWellFormed(t, v.Then)
		if v.Else != nil {
			checkSpansWellFormed(t, v.Else)
		}
	case *ast.Else:
		checkSpansWellFormed(t, v.Body)
	case *ast.ExpressionStmt:
		checkSpansWellFormed(t, v.Expression)
	case *ast.BinaryExpression:
		checkSpansWellFormed(t, v.Left)
		checkSpansWellFormed(t, v.Right)
	case *ast.UnaryExpression:
		checkSpansWellFormed(t, v.Operand)
	case *ast.PipeCall:
		checkSpansWellFormed(t, v.From)
		checkSpansWellFormed(t, v.To)
	case *ast.FunctionCall:
		checkSpansWellFormed(t, v.Target)
		for _, a := range v.Arguments {
			checkSpansWellFormed(t, a)
		}
	}
}

// Round-trip/idempotence (spec.md §8): parsing the same input with
// identical options yields a structurally identical AST.
func TestParser_IdempotentParse(t *testing.T) {
	src := "{% if a %}X{% else %}Y{% endif %}"
	page1, p1 := parse(t, src, liquidDialect(), ParserOptions{})
	page2, p2 := parse(t, src, liquidDialect(), ParserOptions{})
	if p1.HasErrors() || p2.HasErrors() {
		t.Fatalf("unexpected errors: %v / %v", p1.Messages(), p2.Messages())
	}
	astEqual(t, page1, page2)
}

// A missing end-of-statement is fatal and halts further statement
// production (spec.md §4.7, §7).
func TestParser_MissingEndOfStatementIsFatal(t *testing.T) {
	page, p := parse(t, "{{ if a for }}", defaultDialect(), ParserOptions{})
	if page != nil {
		t.Fatalf("expected Run() to return nil, got %#v", page)
	}
	if !p.HasErrors() {
		t.Fatalf("expected an error")
	}
}

// Keyword dispatch is gated per dialect (spec.md §4.4.1/§4.4.2): a
// Liquid-only keyword used as a variable name in the Default dialect (and
// vice versa) must read as a plain expression, not route to that keyword's
// statement parser.
func TestParser_KeywordDialectGating(t *testing.T) {
	t.Run("liquid keywords are plain variables in Default", func(t *testing.T) {
		page, p := parse(t, "{{ assign }}{{ increment.count }}{{ elsif }}", defaultDialect(), ParserOptions{})
		if p.HasErrors() || page == nil {
			t.Fatalf("unexpected errors: %v", p.Messages())
		}
		if len(page.Body.Statements) != 3 {
			t.Fatalf("expected 3 statements, got %d: %#v", len(page.Body.Statements), page.Body.Statements)
		}
		s0 := page.Body.Statements[0].(*ast.ExpressionStmt)
		if v, ok := s0.Expression.(*ast.Variable); !ok || v.Name != "assign" {
			t.Fatalf("statement 0: expected Variable(\"assign\"), got %#v", s0.Expression)
		}
		s1 := page.Body.Statements[1].(*ast.ExpressionStmt)
		path, ok := s1.Expression.(*ast.VariablePath)
		if !ok {
			t.Fatalf("statement 1: expected VariablePath, got %#v", s1.Expression)
		}
		base, ok := path.Base.(*ast.Variable)
		if !ok || base.Name != "increment" || len(path.Members) != 1 || path.Members[0].Name != "count" {
			t.Fatalf("statement 1: expected increment.count path, got %#v", path)
		}
		s2 := page.Body.Statements[2].(*ast.ExpressionStmt)
		if v, ok := s2.Expression.(*ast.Variable); !ok || v.Name != "elsif" {
			t.Fatalf("statement 2: expected Variable(\"elsif\"), got %#v", s2.Expression)
		}
	})

	t.Run("default keywords are plain variables in Liquid", func(t *testing.T) {
		page, p := parse(t, "{% with %}", liquidDialect(), ParserOptions{})
		if p.HasErrors() || page == nil {
			t.Fatalf("unexpected errors: %v", p.Messages())
		}
		if len(page.Body.Statements) != 1 {
			t.Fatalf("expected 1 statement, got %d: %#v", len(page.Body.Statements), page.Body.Statements)
		}
		stmt, ok := page.Body.Statements[0].(*ast.ExpressionStmt)
		if !ok {
			t.Fatalf("expected ExpressionStmt, got %#v", page.Body.Statements[0])
		}
		if v, ok := stmt.Expression.(*ast.Variable); !ok || v.Name != "with" {
			t.Fatalf("expected Variable(\"with\"), got %#v", stmt.Expression)
		}
	})
}

// Liquid object sections (spec.md §4.4.2 first paragraph) bypass keyword
// dispatch entirely and must hold a variable path or pipe call.
func TestParser_LiquidObjectSectionValidation(t *testing.T) {
	t.Run("keyword-shaped identifier reads as a variable", func(t *testing.T) {
		page, p := parse(t, "{{ if }}", liquidDialect(), ParserOptions{})
		if p.HasErrors() || page == nil {
			t.Fatalf("unexpected errors: %v", p.Messages())
		}
		stmt := page.Body.Statements[0].(*ast.ExpressionStmt)
		if v, ok := stmt.Expression.(*ast.Variable); !ok || v.Name != "if" {
			t.Fatalf("expected Variable(\"if\"), got %#v", stmt.Expression)
		}
	})

	t.Run("pipe call is valid", func(t *testing.T) {
		page, p := parse(t, "{{ name | upper }}", liquidDialect(), ParserOptions{})
		if p.HasErrors() || page == nil {
			t.Fatalf("unexpected errors: %v", p.Messages())
		}
		stmt := page.Body.Statements[0].(*ast.ExpressionStmt)
		if _, ok := stmt.Expression.(*ast.PipeCall); !ok {
			t.Fatalf("expected PipeCall, got %#v", stmt.Expression)
		}
	})

	t.Run("non-path expression is a structural-misuse error", func(t *testing.T) {
		page, p := parse(t, "{{ 1 + 2 }}", liquidDialect(), ParserOptions{})
		if page != nil {
			t.Fatalf("expected Run() to return nil, got %#v", page)
		}
		found := false
		for _, m := range p.Messages() {
			if m.Kind == KindError && m.Text == "object section must be a variable path or pipe call" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected object-section diagnostic among %v", p.Messages())
		}
	})
}
