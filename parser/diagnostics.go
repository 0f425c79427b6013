package parser

import "github.com/scrib-lang/scrib/syntax"

// Kind classifies a LogMessage (spec.md §4.7, §7).
type Kind int

const (
	KindError Kind = iota
	KindWarning
)

func (k Kind) String() string {
	if k == KindWarning {
		return "warning"
	}
	return "error"
}

// LogMessage is a single structured diagnostic.
type LogMessage struct {
	Kind Kind
	Span syntax.Span
	Text string
}

// addError logs a recoverable error. It does not, by itself, set
// hasFatalError — callers that need the fatal halt call fatal instead.
func (p *Parser) addError(span syntax.Span, text string) {
	p.messages = append(p.messages, LogMessage{Kind: KindError, Span: span, Text: text})
	p.hasErrors = true
}

func (p *Parser) addWarning(span syntax.Span, text string) {
	p.messages = append(p.messages, LogMessage{Kind: KindWarning, Span: span, Text: text})
}

// fatal logs an error and sets hasFatalError, which short-circuits
// tryParseStatement (spec.md §4.7: "missing end-of-statement", "depth-limit
// exceeded" are the two fatal kinds).
func (p *Parser) fatal(span syntax.Span, text string) {
	p.addError(span, text)
	p.hasFatalError = true
}
