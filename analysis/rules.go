package analysis

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/catalog"
)

// Rule is a single check over a built request.
type Rule struct {
	// Name is the identifier reported with each diagnostic (e.g. "unknown-column").
	Name string

	// Doc describes what the rule checks.
	Doc string

	// Severity is the default severity for diagnostics from this rule.
	Severity Severity

	// Run inspects c and calls c.Report for each problem found.
	Run func(c *Checked)
}

// DefaultRules returns all built-in rules.
func DefaultRules() []*Rule {
	return []*Rule{
		missingVariableRule,
		unknownVariableRule,
		unknownColumnRule,
		unknownOperatorRule,
		unknownConnectorRule,
		unusedConnectorRule,
		missingValueRule,
		typeMismatchRule,
		returnTypeIgnoredRule,
		unknownApiRule,
		invalidTargetRule,
	}
}

var missingVariableRule = &Rule{
	Name:     "missing-variable",
	Doc:      "A request must name the variable the chain starts from.",
	Severity: SeverityError,
	Run: func(c *Checked) {
		if c.Request.Variable == "" {
			c.Report(-1, "no variable selected")
		}
	},
}

var unknownVariableRule = &Rule{
	Name:     "unknown-variable",
	Doc:      "The variable must exist in the metadata source.",
	Severity: SeverityError,
	Run: func(c *Checked) {
		if c.lookupErr != nil {
			c.Report(-1, "variable %q is not defined", c.Request.Variable)
		}
	},
}

var unknownColumnRule = &Rule{
	Name:     "unknown-column",
	Doc:      "Selected and filtered columns must exist on the variable.",
	Severity: SeverityError,
	Run: func(c *Checked) {
		if c.Variable == nil || len(c.Variable.Columns) == 0 {
			return
		}

		for i, s := range c.Specs {
			name := s.ColumnName()
			if name.IsZero() || name.Kind == pdchain.RawLiteral {
				continue
			}

			if _, ok := c.Variable.Column(name.Text); !ok {
				c.Report(i, "%s has no column %q", c.Variable.Name, name.Text)
			}
		}
	},
}

var unknownOperatorRule = &Rule{
	Name:     "unknown-operator",
	Doc:      "Condition operators must be one of the comparison operators.",
	Severity: SeverityError,
	Run: func(c *Checked) {
		for i, s := range c.Specs {
			if cond, ok := s.(pdchain.Condition); ok && !pdchain.IsOperator(cond.Operator) {
				c.Report(i, "unknown operator %q", cond.Operator)
			}
		}
	},
}

var unknownConnectorRule = &Rule{
	Name:     "unknown-connector",
	Doc:      "Condition connectors must be & or |.",
	Severity: SeverityError,
	Run: func(c *Checked) {
		for i, s := range c.Specs {
			cond, ok := s.(pdchain.Condition)
			if ok && cond.Connector != "" && !pdchain.IsConnector(cond.Connector) {
				c.Report(i, "unknown connector %q", cond.Connector)
			}
		}
	},
}

var unusedConnectorRule = &Rule{
	Name:     "unused-connector",
	Doc:      "A connector on the last condition of a run joins nothing and is dropped.",
	Severity: SeverityHint,
	Run: func(c *Checked) {
		for i, s := range c.Specs {
			cond, ok := s.(pdchain.Condition)
			if !ok || cond.Connector == "" || cond.Column.IsZero() {
				continue
			}

			if !nextIsCondition(c.Specs, i) {
				c.Report(i, "connector %q has no following condition", cond.Connector)
			}
		}
	},
}

// nextIsCondition reports whether the next non-empty row after i is a condition.
func nextIsCondition(specs []pdchain.ColumnSpec, i int) bool {
	for _, s := range specs[i+1:] {
		if s.ColumnName().IsZero() {
			continue
		}

		_, ok := s.(pdchain.Condition)

		return ok
	}

	return false
}

var missingValueRule = &Rule{
	Name:     "missing-value",
	Doc:      "Conditions need a value to compare against.",
	Severity: SeverityWarning,
	Run: func(c *Checked) {
		for i, s := range c.Specs {
			if cond, ok := s.(pdchain.Condition); ok && !cond.Column.IsZero() && !cond.HasValue() {
				c.Report(i, "condition on %q has no value", cond.Column.Text)
			}
		}
	},
}

var typeMismatchRule = &Rule{
	Name:     "type-mismatch",
	Doc:      "Numeric columns should be compared against numeric values, whatever the operator.",
	Severity: SeverityWarning,
	Run: func(c *Checked) {
		if c.Variable == nil {
			return
		}

		for i, s := range c.Specs {
			cond, ok := s.(pdchain.Condition)
			if !ok || cond.Value.Kind != pdchain.StringLiteral || cond.Value.IsZero() {
				continue
			}

			col, ok := c.Variable.Column(cond.Column.Text)
			if ok && col.IsNumeric() {
				c.Report(i, "column %q is %s but %s is a string",
					col.Name, col.Dtype, cond.Value.Quote())
			}
		}
	},
}

var returnTypeIgnoredRule = &Rule{
	Name:     "return-type-ignored",
	Doc:      "Series is only possible when the chain ends in one plain column.",
	Severity: SeverityHint,
	Run: func(c *Checked) {
		if c.Request.ReturnType == pdchain.Series && c.Result.ReturnTypeLocked &&
			c.Result.ReturnType != pdchain.Series {
			c.Report(-1, "requested Series but the selection yields %s", c.Result.ReturnType)
		}
	},
}

var unknownApiRule = &Rule{
	Name:     "unknown-api",
	Doc:      "The trailing api should be a known attribute or method of the return type.",
	Severity: SeverityWarning,
	Run: func(c *Checked) {
		rt := c.Result.ReturnType
		if rt == "" && c.Variable != nil {
			rt = pdchain.ReturnType(c.Variable.Type)
		}

		if c.Request.Api == "" || len(catalog.For(rt)) == 0 {
			return
		}

		if _, ok := catalog.Lookup(rt, c.Request.Api); !ok {
			c.Report(-1, "%s has no attribute or method %q", rt, c.Request.Api)
		}
	},
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

var invalidTargetRule = &Rule{
	Name:     "invalid-target",
	Doc:      "The assignment target must be a Python identifier.",
	Severity: SeverityError,
	Run: func(c *Checked) {
		t := c.Request.Target
		if t == "" {
			return
		}

		if err := checkIdent(t); err != nil {
			c.Report(-1, "target %v", err)
		}
	},
}

var errKeyword = errors.New("is a Python keyword")

func checkIdent(s string) error {
	if !identPattern.MatchString(s) {
		return fmt.Errorf("%q is not a valid identifier", s)
	}

	if pythonKeywords[s] {
		return fmt.Errorf("%q %w", s, errKeyword)
	}

	return nil
}

// invalidPythonRule is reported by Analyzer.Check when a SyntaxChecker is set.
var invalidPythonRule = &Rule{
	Name:     "invalid-python",
	Doc:      "The generated code must parse as Python.",
	Severity: SeverityError,
	Run:      func(*Checked) {},
}
