package expect

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// LineTag is a decoded "[<lang> ]line <N>]" attribution tag, as used by
// language-qualified compile error markers and by interpreter diagnostics.
type LineTag struct {
	Lang string
	Line int
}

// lineTagGrammar is the participle grammar for attribution tags.
// Examples: "[line 3]", "[c line 12]", "[java line 7]"
//
//nolint:govet // participle grammar tags are not standard struct tags
type lineTagGrammar struct {
	Lang    string `parser:"\"[\" @Ident?"`
	Keyword string `parser:"@Line"`
	Line    int    `parser:"@Int \"]\""`
}

// lineTagLexer defines the lexer for attribution tags. Line must precede
// Ident so the keyword is not lexed as a language name.
var lineTagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Line", Pattern: `line\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[\[\]]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

// lineTagParser is the participle parser for attribution tags.
var lineTagParser = participle.MustBuild[lineTagGrammar](
	participle.Lexer(lineTagLexer),
	participle.Elide("Whitespace"),
)

// ParseLineTag decodes an attribution tag such as "[c line 12]".
func ParseLineTag(s string) (LineTag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LineTag{}, fmt.Errorf("empty line tag")
	}

	parsed, err := lineTagParser.ParseString("", s)
	if err != nil {
		return LineTag{}, fmt.Errorf("invalid line tag %q: %w", s, err)
	}
	if parsed.Line < 1 {
		return LineTag{}, fmt.Errorf("invalid line tag %q: line must be positive", s)
	}

	return LineTag{Lang: parsed.Lang, Line: parsed.Line}, nil
}

// String returns the tag in its source form.
func (t LineTag) String() string {
	if t.Lang != "" {
		return fmt.Sprintf("[%s line %d]", t.Lang, t.Line)
	}
	return fmt.Sprintf("[line %d]", t.Line)
}
