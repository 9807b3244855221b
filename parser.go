package pdchain

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// selectionLexer tokenizes the selection DSL. Order matters: Arrow and
// Number must win over the generic punctuation rule.
var selectionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `'(\\.|[^'\\])*'|"(\\.|[^"\\])*"`},
	{Name: "RawString", Pattern: "`(``|[^`])*`"},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Op", Pattern: `>=|<=|==|!=|>|<`},
	{Name: "Conn", Pattern: `[&|]`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[-+*/%=.,:;\[\](){}~^@!?]`},
})

var elidedTypes = map[lexer.TokenType]bool{
	selectionLexer.Symbols()["Whitespace"]: true,
	selectionLexer.Symbols()["Comment"]:    true,
}

var selectionParser = participle.MustBuild[Selection](
	participle.Lexer(selectionLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses selection DSL text.
func Parse(src string) (*Selection, error) {
	sel, err := selectionParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse selection: %w", err)
	}

	if sel.Api != nil {
		sel.ApiText = sel.Api.text(src, elidedTypes)
	}

	return sel, nil
}

// MustParse is Parse that panics on error. Intended for tests and fixed tables.
func MustParse(src string) *Selection {
	sel, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return sel
}

// Request converts the parsed selection into a chain request.
func (s *Selection) Request() *Request {
	req := &Request{
		Variable:   s.Variable,
		ReturnType: ReturnType(s.ReturnType),
		Api:        s.ApiText,
		Target:     s.Target,
	}

	specs := make([]ColumnSpec, 0, len(s.Items))
	for _, it := range s.Items {
		specs = append(specs, it.spec())
	}

	req.Columns = MetaFromSpecs(specs)

	return req
}

func (it *Item) spec() ColumnSpec {
	col := it.Column.column()
	if it.Comparison == nil {
		return Plain{Column: col}
	}

	cond := Condition{
		Column:    col,
		Operator:  it.Comparison.Operator(),
		Connector: it.Connector,
	}
	if it.Comparison.Value != nil {
		cond.Value = it.Comparison.Value.value()
	}

	return cond
}
