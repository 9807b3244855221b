package pdchain

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Selection is the parsed form of the selection DSL:
//
//	df[age > 18 &, age < 65, name] : Series .head(5) -> adults
//
// Items are the column rows in order. A row is a column, optionally
// followed by a comparison and a connector joining it to the next row.
type Selection struct {
	Pos lexer.Position `parser:""`

	Variable   string   `parser:"@Ident"`
	Items      []*Item  `parser:"( '[' ( @@ ( ',' @@ )* ','? )? ']' )?"`
	ReturnType string   `parser:"( ':' @Ident )?"`
	Api        *ApiCall `parser:"( '.' @@ )?"`
	Target     string   `parser:"( Arrow @Ident )?"`

	// ApiText is the api as written, filled in by Parse.
	ApiText string `parser:""`
}

// Item is one column row.
type Item struct {
	Pos lexer.Position `parser:""`

	Column     *Value      `parser:"@@"`
	Comparison *Comparison `parser:"@@?"`
	Connector  string      `parser:"@Conn?"`
}

// Comparison is the operator and optional right-hand value of a condition row.
type Comparison struct {
	Op    string `parser:"(   @Op"`
	NotIn bool   `parser:"  | @'not' 'in'"`
	In    bool   `parser:"  | @'in' )"`
	Value *Value `parser:"@@?"`
}

// Operator returns the comparison operator text.
func (c *Comparison) Operator() string {
	switch {
	case c.NotIn:
		return OpNot
	case c.In:
		return OpIn
	default:
		return c.Op
	}
}

// Value is a column name or condition value.
type Value struct {
	Str    *string `parser:"  @String"`
	Raw    *string `parser:"| @RawString"`
	Number *string `parser:"| @Number"`
	Ident  *string `parser:"| @Ident"`
}

// ApiCall is a trailing attribute or method access such as head(5) or
// loc[0]. Its text is recovered from the source so argument spacing is
// kept as written.
type ApiCall struct {
	Tokens []lexer.Token `parser:""`

	Name   string   `parser:"@Ident"`
	Groups []*Group `parser:"@@*"`
}

// Group is a parenthesized or bracketed token run.
type Group struct {
	Open  string       `parser:"@( '(' | '[' )"`
	Items []*GroupItem `parser:"@@*"`
	Close string       `parser:"@( ')' | ']' )"`
}

// GroupItem is either a nested group or any other token.
type GroupItem struct {
	Group *Group `parser:"  @@"`
	Tok   string `parser:"| @~( '(' | ')' | '[' | ']' )"`
}

// text returns the api as written in src, without surrounding whitespace
// or comments.
func (a *ApiCall) text(src string, elided map[lexer.TokenType]bool) string {
	toks := a.Tokens
	for len(toks) > 0 && elided[toks[0].Type] {
		toks = toks[1:]
	}

	for len(toks) > 0 && elided[toks[len(toks)-1].Type] {
		toks = toks[:len(toks)-1]
	}

	if len(toks) == 0 {
		return a.Name
	}

	first, last := toks[0], toks[len(toks)-1]
	start, end := first.Pos.Offset, last.Pos.Offset+len(last.Value)

	if start < 0 || end > len(src) || start > end {
		return a.Name
	}

	return src[start:end]
}

// column converts a column value. Identifiers and quoted text are strings.
func (v *Value) column() Literal {
	switch {
	case v.Str != nil:
		return Str(unquotePython(*v.Str))
	case v.Raw != nil:
		return Raw(unquoteRaw(*v.Raw))
	case v.Number != nil:
		return Num(*v.Number)
	case v.Ident != nil:
		return Str(*v.Ident)
	default:
		return Literal{}
	}
}

// unquoteRaw strips the backticks around raw text; a doubled backtick
// inside stands for one.
func unquoteRaw(s string) string {
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}

	return strings.ReplaceAll(s, "``", "`")
}

// value converts a condition value. Bare True, False and None stay raw.
func (v *Value) value() Literal {
	if v.Ident != nil && pythonConstants[*v.Ident] {
		return Raw(*v.Ident)
	}

	return v.column()
}

// unquotePython strips the surrounding quotes of a Python string literal
// and resolves the escapes quotePython produces.
func unquotePython(s string) string {
	if len(s) < 2 {
		return s
	}

	s = s[1 : len(s)-1]
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}

		i++

		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String()
}
