// Package metadata supplies the columns, dtypes, distinct values and
// sample rows of the variables a chain can be built on.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rlch/pdchain"
)

// Sentinel errors.
var (
	ErrUnknownVariable = errors.New("metadata: unknown variable")
	ErrUnknownColumn   = errors.New("metadata: unknown column")
)

// Column is a column name and its pandas dtype.
type Column struct {
	Name  string `json:"name" yaml:"name"`
	Dtype string `json:"dtype,omitempty" yaml:"dtype,omitempty"`
}

// IsNumeric reports whether the dtype holds numbers.
func (c Column) IsNumeric() bool {
	d := strings.ToLower(c.Dtype)
	for _, p := range []string{"int", "uint", "float", "complex"} {
		if strings.HasPrefix(d, p) {
			return true
		}
	}

	return false
}

// IsCategorical reports whether the column holds labels worth offering as
// condition suggestions.
func (c Column) IsCategorical() bool {
	switch strings.ToLower(c.Dtype) {
	case "object", "category", "string", "str":
		return true
	default:
		return false
	}
}

// Variable describes one object in the user's namespace.
type Variable struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Columns []Column `json:"columns,omitempty"`
}

// Column finds a column by name.
func (v *Variable) Column(name string) (Column, bool) {
	for _, c := range v.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}

// ColumnNames returns the column names in order.
func (v *Variable) ColumnNames() []string {
	names := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		names[i] = c.Name
	}

	return names
}

// Source is a variable metadata provider.
type Source interface {
	// Variables lists variable names.
	Variables(ctx context.Context) ([]string, error)
	// Variable describes one variable.
	Variable(ctx context.Context, name string) (*Variable, error)
	// Uniques lists the distinct values of a column as condition literals.
	Uniques(ctx context.Context, variable, column string) ([]pdchain.Literal, error)
	// Rows returns up to limit sample rows keyed by column name.
	Rows(ctx context.Context, variable string, limit int) ([]map[string]any, error)
}

// literalFor turns a stored value into a condition literal for a column.
func literalFor(c Column, v any) pdchain.Literal {
	switch x := v.(type) {
	case nil:
		return pdchain.Raw("None")
	case bool:
		if x {
			return pdchain.Raw("True")
		}

		return pdchain.Raw("False")
	case int:
		return pdchain.Num(strconv.Itoa(x))
	case int64:
		return pdchain.Num(strconv.FormatInt(x, 10))
	case float64:
		return pdchain.Num(strconv.FormatFloat(x, 'g', -1, 64))
	case []byte:
		return literalFor(c, string(x))
	case string:
		if c.IsNumeric() && pdchain.IsNumeric(x) {
			return pdchain.Num(x)
		}

		return pdchain.Str(x)
	default:
		return pdchain.Str(fmt.Sprint(x))
	}
}

func unknownColumn(variable, column string) error {
	return fmt.Errorf("%w: %s[%q]", ErrUnknownColumn, variable, column)
}

func unknownVariable(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
}
