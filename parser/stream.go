package parser

import (
	"github.com/scrib-lang/scrib/lexer"
	"github.com/scrib-lang/scrib/syntax"
	"github.com/scrib-lang/scrib/token"
)

// stream wraps the lexer iterator with a peek buffer (spec.md §4.1). Hidden
// tokens (Comment, CommentMulti, Whitespace, and NewLine when allowNewLine
// is above zero) are never handed to the dispatcher — they are routed to the
// trivia manager and skipped over transparently by advance()/peek().
type stream struct {
	lex  *lexer.Lexer
	file string

	buf    []token.Token
	bufPos int

	cur  token.Token
	prev token.Token

	allowNewLine int
	keepTrivia   bool

	trivia *triviaManager

	lexErr error
}

func newStream(lex *lexer.Lexer, trivia *triviaManager) *stream {
	s := &stream{
		lex:        lex,
		file:       lex.File(),
		keepTrivia: lex.Options().KeepTrivia,
		trivia:     trivia,
	}
	s.prime()
	return s
}

// hidden reports whether tok should be routed to trivia rather than
// surfaced to the dispatcher (spec.md §3.1, §4.1).
func (s *stream) hidden(k token.Kind) bool {
	if k.AlwaysHidden() {
		return true
	}
	if k == token.NewLine {
		return s.allowNewLine > 0
	}
	return false
}

func (s *stream) pull() token.Token {
	tok, err := s.lex.Next()
	if err != nil && s.lexErr == nil {
		s.lexErr = err
	}
	return tok
}

// prime fills cur with the first non-hidden token, routing any hidden
// tokens encountered along the way to the trivia manager.
func (s *stream) prime() { s.fill() }

// fill advances cur to the next non-hidden token. It drains any tokens
// buffered by a prior Peek first (a Peek may have buffered hidden tokens
// on its way to the non-hidden one it returned — those still need to be
// routed to trivia here rather than leaking through as Current), then
// falls back to pulling fresh tokens from the lexer.
func (s *stream) fill() {
	for s.bufPos < len(s.buf) {
		tok := s.buf[s.bufPos]
		s.bufPos++
		if s.hidden(tok.Kind) {
			s.pushTrivia(tok)
			if tok.Kind == token.Eof {
				s.cur = tok
				return
			}
			continue
		}
		s.cur = tok
		if s.bufPos >= len(s.buf) {
			s.buf = s.buf[:0]
			s.bufPos = 0
		}
		return
	}
	s.buf = s.buf[:0]
	s.bufPos = 0
	for {
		tok := s.pull()
		if s.hidden(tok.Kind) {
			s.pushTrivia(tok)
			if tok.Kind == token.Eof {
				s.cur = tok
				return
			}
			continue
		}
		s.cur = tok
		return
	}
}

func (s *stream) pushTrivia(tok token.Token) {
	if !s.keepTrivia {
		return
	}
	s.trivia.push(tok, s.span(tok.Span))
}

func (s *stream) span(ts syntax.TokenSpan) syntax.Span {
	return syntax.FromTokenSpan(s.file, ts)
}

// Current returns the current non-hidden token.
func (s *stream) Current() token.Token { return s.cur }

// Previous returns the most recently advanced-past non-hidden token.
func (s *stream) Previous() token.Token { return s.prev }

// Advance consumes Current and returns it, pulling the next non-hidden
// token (draining the peek buffer first if one was primed by Peek).
func (s *stream) Advance() token.Token {
	tok := s.cur
	s.prev = tok
	if tok.Kind == token.Eof {
		return tok
	}
	s.fill()
	return tok
}

// Peek returns the next non-hidden token after Current without consuming
// it, buffering any hidden tokens it passes over (spec.md §4.1: "peek()
// scans that buffer ... if exhausted, it pulls from the lexer, appending
// each pulled token ... until a non-hidden one is found").
func (s *stream) Peek() token.Token {
	for i := s.bufPos; i < len(s.buf); i++ {
		if !s.hidden(s.buf[i].Kind) {
			return s.buf[i]
		}
	}
	for {
		tok := s.pull()
		s.buf = append(s.buf, tok)
		if !s.hidden(tok.Kind) {
			return tok
		}
		if tok.Kind == token.Eof {
			return tok
		}
	}
}

// EnterAllowNewLine/LeaveAllowNewLine bracket constructs that span lines
// (argument lists, bracketed expressions) during which NewLine tokens
// should be hidden (spec.md §4.1).
func (s *stream) EnterAllowNewLine() { s.allowNewLine++ }
func (s *stream) LeaveAllowNewLine() {
	if s.allowNewLine > 0 {
		s.allowNewLine--
	}
}
