package lexer

// Dialect selects the surface syntax the lexer/parser pair understands
// (spec.md §1): Default is the expression/statement language, Liquid is
// the restricted tag/object-section dialect.
type Dialect int

const (
	DialectDefault Dialect = iota
	DialectLiquid
)

// ParseMode is the front-matter controller's top-level mode switch
// (spec.md §4.8, §6.2).
type ParseMode int

const (
	ModeDefault ParseMode = iota
	ModeScriptOnly
	ModeFrontMatterOnly
	ModeFrontMatterAndContent
)

// Options configures a Lexer. It mirrors the teacher's SyntaxConfig /
// WhitespaceConfig split (lexer/config.go in the teacher) collapsed into
// one struct, since this engine's delimiters are fixed by dialect rather
// than user-configurable.
type Options struct {
	Dialect           Dialect
	Mode              ParseMode
	KeepTrivia        bool
	FrontMatterMarker string
}

// DefaultOptions returns the default lexer configuration: default dialect,
// default mode, trivia retention on, "+++" front matter marker.
func DefaultOptions() Options {
	return Options{
		Dialect:           DialectDefault,
		Mode:              ModeDefault,
		KeepTrivia:        true,
		FrontMatterMarker: "+++",
	}
}
