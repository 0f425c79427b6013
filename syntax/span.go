// Package syntax holds the source-position types shared by the lexer,
// the token stream, and the AST. Keeping them in one leaf package avoids
// an import cycle between token, lexer, ast and parser.
package syntax

// Position is a single point in source text.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Less reports whether p sorts strictly before other by offset.
func (p Position) Less(other Position) bool {
	return p.Offset < other.Offset
}

// TokenSpan is the start/end range of a lexed token (no file component —
// the lexer only ever sees one file at a time).
type TokenSpan struct {
	Start Position
	End   Position
}

// Span is the start/end range attached to an AST node, scoped to a file.
type Span struct {
	File  string
	Start Position
	End   Position
}

// FromTokenSpan lifts a TokenSpan into a file-scoped Span.
func FromTokenSpan(file string, ts TokenSpan) Span {
	return Span{File: file, Start: ts.Start, End: ts.End}
}
