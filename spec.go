package pdchain

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// ColumnSpec is one row of the column list: either a Plain selector or a
// Condition on a column. The variant is decided once, when the row enters
// the package, so the builder never re-inspects operator strings.
type ColumnSpec interface {
	// ColumnName returns the column the row refers to.
	ColumnName() Literal
	// Meta returns the flat form used by UIs and files.
	Meta() ColumnMeta

	columnSpec()
}

// Plain selects a column.
type Plain struct {
	Column Literal
}

// Condition compares a column against an optional value. Connector joins
// this condition to the next one in the same run.
type Condition struct {
	Column    Literal
	Operator  string
	Value     Literal
	Connector string
}

func (Plain) columnSpec()     {}
func (Condition) columnSpec() {}

// ColumnName implements ColumnSpec.
func (p Plain) ColumnName() Literal { return p.Column }

// ColumnName implements ColumnSpec.
func (c Condition) ColumnName() Literal { return c.Column }

// HasValue reports whether the condition has a right-hand operand.
func (c Condition) HasValue() bool { return !c.Value.IsZero() }

// Meta implements ColumnSpec.
func (p Plain) Meta() ColumnMeta {
	return ColumnMeta{Column: p.Column.Text, ColumnKind: kindHint(p.Column, Classify)}
}

// Meta implements ColumnSpec.
func (c Condition) Meta() ColumnMeta {
	m := ColumnMeta{
		Column:     c.Column.Text,
		ColumnKind: kindHint(c.Column, Classify),
		Operator:   c.Operator,
		Condition:  c.Value.Text,
		Connector:  c.Connector,
	}
	if c.HasValue() {
		m.ConditionKind = kindHint(c.Value, ClassifyValue)
	}

	return m
}

// kindHint returns the kind name only when classify would guess differently.
func kindHint(l Literal, classify func(string) Literal) string {
	if classify(l.Text).Kind == l.Kind {
		return ""
	}

	return l.Kind.String()
}

// ColumnMeta is the flat, untyped description of one column row as a UI
// stores it. Kind fields are only set when the text alone would be
// classified differently.
type ColumnMeta struct {
	Column        string `json:"column" yaml:"column"`
	ColumnKind    string `json:"column_kind,omitempty" yaml:"column_kind,omitempty"`
	Operator      string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Condition     string `json:"condition,omitempty" yaml:"condition,omitempty"`
	ConditionKind string `json:"condition_kind,omitempty" yaml:"condition_kind,omitempty"`
	Connector     string `json:"connector,omitempty" yaml:"connector,omitempty"`
}

// Spec converts the flat row into its typed form.
func (m ColumnMeta) Spec() ColumnSpec {
	col := withKind(Classify(m.Column), m.ColumnKind)

	if m.Operator == "" {
		return Plain{Column: col}
	}

	cond := Condition{Column: col, Operator: m.Operator, Connector: m.Connector}
	if m.Condition != "" {
		cond.Value = withKind(ClassifyValue(m.Condition), m.ConditionKind)
	}

	return cond
}

func withKind(l Literal, name string) Literal {
	if k, ok := ParseLiteralKind(name); ok {
		l.Kind = k
	}

	return l
}

// SpecsFromMeta converts flat rows into typed specs, preserving order.
func SpecsFromMeta(rows []ColumnMeta) []ColumnSpec {
	specs := make([]ColumnSpec, 0, len(rows))
	for _, r := range rows {
		specs = append(specs, r.Spec())
	}

	return specs
}

// MetaFromSpecs flattens typed specs.
func MetaFromSpecs(specs []ColumnSpec) []ColumnMeta {
	rows := make([]ColumnMeta, 0, len(specs))
	for _, s := range specs {
		rows = append(rows, s.Meta())
	}

	return rows
}

// EncodeColumnMeta serializes rows as URL-escaped JSON, suitable for a
// hidden form field or a notebook cell metadata entry.
func EncodeColumnMeta(rows []ColumnMeta) (string, error) {
	if rows == nil {
		rows = []ColumnMeta{}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}

	return url.QueryEscape(string(data)), nil
}

// DecodeColumnMeta reverses EncodeColumnMeta. An empty string decodes to no rows.
func DecodeColumnMeta(s string) ([]ColumnMeta, error) {
	if s == "" {
		return nil, nil
	}

	raw, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadColumnMeta, err)
	}

	var rows []ColumnMeta
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadColumnMeta, err)
	}

	return rows, nil
}
