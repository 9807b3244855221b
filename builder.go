package pdchain

import (
	"strings"

	"go.uber.org/zap"
)

// Result is the outcome of a build.
type Result struct {
	Chain *Chain
	// Specs are the rows the chain was built from, kept so a UI can
	// restore its column list later.
	Specs []ColumnSpec

	// ReturnType is what the chain evaluates to before any trailing api.
	ReturnType ReturnType
	// ReturnTypeLocked is false only when the chain ends in a single plain
	// column, the one case where DataFrame and Series are both possible.
	ReturnTypeLocked bool
}

// Render renders the chain.
func (r *Result) Render() string { return RenderChain(r.Chain) }

// Meta flattens the specs for storage.
func (r *Result) Meta() []ColumnMeta { return MetaFromSpecs(r.Specs) }

// Builder turns column specs into chains. The zero value is not usable; use NewBuilder.
type Builder struct {
	connector    string
	parenthesize bool
	logger       *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDefaultConnector sets the connector used between two conditions when
// the earlier row has none. Defaults to "&".
func WithDefaultConnector(c string) BuilderOption {
	return func(b *Builder) { b.connector = c }
}

// WithParenthesizedConditions wraps each comparison in parentheses, giving
// df[(df['a'] > 1) & (df['b'] < 2)]. Without it comparisons are emitted
// bare and pandas applies its own operator precedence.
func WithParenthesizedConditions() BuilderOption {
	return func(b *Builder) { b.parenthesize = true }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{connector: ConnAnd, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

var defaultBuilder = NewBuilder()

// BuildChain builds a chain with default options.
func BuildChain(base string, specs []ColumnSpec, hint ReturnType, api string) *Result {
	return defaultBuilder.Build(base, specs, hint, api)
}

// Build converts base, specs, a return type hint and an optional trailing
// attribute or method into a chain.
//
// Contiguous plain rows become one column selection, contiguous condition
// rows become one boolean mask; each run is appended to the chain when the
// run type changes. hint only matters when the chain ends in exactly one
// plain column: Series gives df['a'], anything else df[['a']].
func (b *Builder) Build(base string, specs []ColumnSpec, hint ReturnType, api string) *Result {
	res := &Result{
		Specs:            append([]ColumnSpec(nil), specs...),
		ReturnType:       hint,
		ReturnTypeLocked: true,
	}

	if base == "" {
		res.Chain = &Chain{}
		return res
	}

	a := &arena{}
	tail := a.add(newBlock(Variable, base))

	var (
		plain []Literal
		conds []Condition
	)

	for _, s := range specs {
		switch s := s.(type) {
		case Plain:
			if s.Column.IsZero() {
				continue
			}

			if len(conds) > 0 {
				tail = b.flushConditions(a, tail, base, conds)
				conds = nil
			}

			plain = append(plain, s.Column)
		case Condition:
			if s.Column.IsZero() {
				continue
			}

			if len(plain) > 0 {
				tail = flushColumns(a, tail, plain, true)
				plain = nil
			}

			conds = append(conds, s)
		}
	}

	switch {
	case len(conds) > 0:
		tail = b.flushConditions(a, tail, base, conds)
		res.ReturnType = DataFrame
	case len(plain) == 1:
		tail = flushColumns(a, tail, plain, hint != Series)
		res.ReturnTypeLocked = false
		if hint != Series {
			res.ReturnType = DataFrame
		}
	case len(plain) > 1:
		tail = flushColumns(a, tail, plain, true)
		res.ReturnType = DataFrame
	}

	if api = strings.TrimPrefix(api, "."); api != "" {
		next := a.add(newBlock(Api, "."+api))
		a.link(tail, next)
	}

	res.Chain = a.freeze()

	b.logger.Debug("built chain",
		zap.String("variable", base),
		zap.Int("specs", len(specs)),
		zap.Int("blocks", res.Chain.Len()),
		zap.String("returnType", string(res.ReturnType)))

	return res
}

// flushColumns appends [cols] or [[cols]] after tail and returns the new tail.
func flushColumns(a *arena, tail int, cols []Literal, double bool) int {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = c.Quote()
	}

	code := a.add(newBlock(Code, strings.Join(quoted, ", ")))

	outer := a.bracket(code)
	if double {
		outer = a.bracket(outer)
	}

	a.link(tail, outer)

	return outer
}

// flushConditions appends base[c1 op c2 op ...] after tail and returns the
// new tail. Each condition becomes base[col] op value; connectors fold the
// conditions strictly left to right.
func (b *Builder) flushConditions(a *arena, tail int, base string, conds []Condition) int {
	combined := NoLink

	for i, c := range conds {
		v := a.add(newBlock(Variable, base))
		col := a.add(newBlock(Code, c.Column.Quote()))
		a.link(v, a.bracket(col))

		right := NoLink
		if c.HasValue() {
			right = a.add(newBlock(Code, c.Value.Quote()))
		}

		cmp := a.operator(c.Operator, v, right)
		if b.parenthesize {
			cmp = parenthesize(a, cmp)
		}

		if i == 0 {
			combined = cmp
			continue
		}

		conn := conds[i-1].Connector
		if conn == "" {
			conn = b.connector
		}

		combined = a.operator(conn, combined, cmp)
	}

	mask := a.bracket(combined)
	a.link(tail, mask)

	return mask
}

// parenthesize renders the sub-chain at i as ( ... ) and returns its new head.
func parenthesize(a *arena, i int) int {
	open := a.add(newBlock(Code, "("))
	a.link(open, i)
	a.link(i, a.add(newBlock(Code, ")")))

	return open
}
