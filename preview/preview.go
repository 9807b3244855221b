// Package preview evaluates the selections and conditions of a chain
// against sample rows, so a user can see what the generated code would
// return without running Python.
package preview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/metadata"
)

// ErrIncomplete is returned when a condition has no value.
var ErrIncomplete = errors.New("preview: condition has no value")

// rowVar is the name each row is bound to inside compiled expressions.
const rowVar = "row"

type stage struct {
	mask    *vm.Program
	source  string
	columns []string // selected columns, or those a mask reads
}

// Program is a compiled sequence of masks and column selections.
type Program struct {
	stages []stage
}

// Compile turns specs into a program. Condition runs fold left to right
// with their connectors, the same grouping the builder uses; a missing
// connector is "&".
func Compile(specs []pdchain.ColumnSpec) (*Program, error) {
	p := &Program{}

	var (
		cols  []string
		conds []pdchain.Condition
	)

	flush := func() error {
		if len(cols) > 0 {
			p.stages = append(p.stages, stage{columns: cols})
			cols = nil
		}

		if len(conds) > 0 {
			st, err := compileMask(conds)
			if err != nil {
				return err
			}

			p.stages = append(p.stages, st)
			conds = nil
		}

		return nil
	}

	for _, s := range specs {
		if s.ColumnName().IsZero() {
			continue
		}

		switch s := s.(type) {
		case pdchain.Plain:
			if len(conds) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}

			cols = append(cols, s.Column.Text)
		case pdchain.Condition:
			if len(cols) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}

			conds = append(conds, s)
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	return p, nil
}

// Expressions returns the source of each compiled mask in order.
func (p *Program) Expressions() []string {
	var out []string

	for _, st := range p.stages {
		if st.mask != nil {
			out = append(out, st.source)
		}
	}

	return out
}

// Columns returns the columns left after every selection, starting from all.
func (p *Program) Columns(all []string) []string {
	out := all

	for _, st := range p.stages {
		if st.mask == nil {
			out = st.columns
		}
	}

	return out
}

// Filter applies every stage to rows in order. Rows are not modified;
// selections return new maps holding only the selected keys.
func (p *Program) Filter(rows []map[string]any) ([]map[string]any, error) {
	for _, st := range p.stages {
		next := make([]map[string]any, 0, len(rows))

		for i, row := range rows {
			picked, err := project(row, st.columns)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}

			if st.mask == nil {
				next = append(next, picked)
				continue
			}

			out, err := expr.Run(st.mask, map[string]any{rowVar: row})
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", i, st.source, err)
			}

			if keep, _ := out.(bool); keep {
				next = append(next, row)
			}
		}

		rows = next
	}

	return rows, nil
}

func project(row map[string]any, cols []string) (map[string]any, error) {
	out := make(map[string]any, len(cols))

	for _, c := range cols {
		v, ok := row[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q", metadata.ErrUnknownColumn, c)
		}

		out[c] = v
	}

	return out, nil
}

func compileMask(conds []pdchain.Condition) (stage, error) {
	var (
		b    strings.Builder
		refs []string
	)

	for i, c := range conds {
		refs = append(refs, c.Column.Text)

		term, err := condition(c)
		if err != nil {
			return stage{}, err
		}

		if i == 0 {
			b.WriteString(term)
			continue
		}

		conn := conds[i-1].Connector
		src := "(" + b.String() + ") " + logical(conn) + " " + term

		b.Reset()
		b.WriteString(src)
	}

	source := b.String()

	prog, err := expr.Compile(source,
		expr.Env(map[string]any{rowVar: map[string]any{}}),
		expr.AsBool(),
	)
	if err != nil {
		return stage{}, fmt.Errorf("compile %q: %w", source, err)
	}

	return stage{mask: prog, source: source, columns: refs}, nil
}

func logical(conn string) string {
	if conn == pdchain.ConnOr {
		return "or"
	}

	return "and"
}

func condition(c pdchain.Condition) (string, error) {
	if !c.HasValue() {
		return "", fmt.Errorf("%w: %s", ErrIncomplete, c.Column.Text)
	}

	if !pdchain.IsOperator(c.Operator) {
		return "", fmt.Errorf("preview: unsupported operator %q", c.Operator)
	}

	lhs := rowVar + "[" + strconv.Quote(c.Column.Text) + "]"

	return "(" + lhs + " " + c.Operator + " " + value(c.Value) + ")", nil
}

var constants = map[string]string{"True": "true", "False": "false", "None": "nil"}

// value writes a literal in expr syntax.
func value(l pdchain.Literal) string {
	switch l.Kind {
	case pdchain.NumberLiteral:
		return l.Text
	case pdchain.RawLiteral:
		if c, ok := constants[l.Text]; ok {
			return c
		}

		return l.Text
	default:
		return strconv.Quote(l.Text)
	}
}

// Run loads up to limit sample rows for the request's variable and filters
// them. It returns the surviving rows and the column order to show them in.
func Run(ctx context.Context, src metadata.Source, req *pdchain.Request, limit int) ([]map[string]any, []string, error) {
	prog, err := Compile(req.Specs())
	if err != nil {
		return nil, nil, err
	}

	v, err := src.Variable(ctx, req.Variable)
	if err != nil {
		return nil, nil, err
	}

	rows, err := src.Rows(ctx, req.Variable, limit)
	if err != nil {
		return nil, nil, err
	}

	rows, err = prog.Filter(rows)
	if err != nil {
		return nil, nil, err
	}

	return rows, prog.Columns(v.ColumnNames()), nil
}
