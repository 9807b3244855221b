package pdchain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LiteralKind tags how a literal is written into generated code.
type LiteralKind int

// Literal kinds.
const (
	// StringLiteral is quoted on output.
	StringLiteral LiteralKind = iota
	// NumberLiteral is written bare.
	NumberLiteral
	// RawLiteral is written verbatim: pre-quoted text, Python constants, expressions.
	RawLiteral
)

func (k LiteralKind) String() string {
	switch k {
	case NumberLiteral:
		return "number"
	case RawLiteral:
		return "raw"
	default:
		return "string"
	}
}

// ParseLiteralKind maps the names produced by LiteralKind.String back to kinds.
// Unknown names yield false.
func ParseLiteralKind(s string) (LiteralKind, bool) {
	switch s {
	case "string":
		return StringLiteral, true
	case "number":
		return NumberLiteral, true
	case "raw":
		return RawLiteral, true
	default:
		return StringLiteral, false
	}
}

// Literal is a column name or condition value with its output kind fixed.
type Literal struct {
	Kind LiteralKind
	Text string
}

// Str returns a string literal.
func Str(s string) Literal { return Literal{Kind: StringLiteral, Text: s} }

// Num returns a number literal.
func Num(s string) Literal { return Literal{Kind: NumberLiteral, Text: s} }

// Raw returns a literal emitted verbatim.
func Raw(s string) Literal { return Literal{Kind: RawLiteral, Text: s} }

// pythonConstants are emitted bare even though they are not numeric.
var pythonConstants = map[string]bool{"True": true, "False": true, "None": true}

// Classify decides the kind of untyped UI text. Numeric text is a number,
// text already wrapped in matching quotes is raw, everything else is a string.
func Classify(text string) Literal {
	if IsNumeric(text) {
		return Num(text)
	}

	if isQuoted(text) {
		return Raw(text)
	}

	return Str(text)
}

// ClassifyValue is Classify with Python constants treated as raw.
// Column names never go through this: a column called "None" is still a string.
func ClassifyValue(text string) Literal {
	if pythonConstants[text] {
		return Raw(text)
	}

	return Classify(text)
}

// IsNumeric reports whether s is a finite decimal number, optionally signed
// and with an exponent.
func IsNumeric(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}

	_, err := decimal.NewFromString(s)

	return err == nil
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}

	q := s[0]

	return (q == '\'' || q == '"') && s[len(s)-1] == q
}

// Quote returns the literal as Python source text.
func (l Literal) Quote() string {
	switch l.Kind {
	case NumberLiteral, RawLiteral:
		return l.Text
	default:
		return quotePython(l.Text)
	}
}

// IsZero reports whether the literal carries no text.
func (l Literal) IsZero() bool { return l.Text == "" }

// quotePython quotes s the way Python's repr does for str: single quotes
// unless s holds a single quote and no double quote.
func quotePython(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte(quote)

	for i := range len(s) {
		c := s[i]

		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte(quote)

	return b.String()
}
