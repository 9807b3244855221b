package pdchain

import (
	"regexp"
	"strings"
)

// DefaultMaxLineWidth is the width past which Format splits items one per line.
const DefaultMaxLineWidth = 100

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dslKeywords cannot be written as bare identifiers.
var dslKeywords = map[string]bool{"in": true, "not": true}

// Format prints a request as selection DSL text that parses back to the
// same request.
func Format(r *Request) string {
	return FormatWithWidth(r, DefaultMaxLineWidth)
}

// FormatWithWidth prints a request, splitting the column list across lines
// when the single-line form is wider than maxWidth.
func FormatWithWidth(r *Request, maxWidth int) string {
	items := make([]string, 0, len(r.Columns))
	for _, spec := range r.Specs() {
		items = append(items, formatItem(spec))
	}

	var tail strings.Builder

	if r.ReturnType != "" {
		tail.WriteString(" : " + string(r.ReturnType))
	}

	if api := strings.TrimPrefix(r.Api, "."); api != "" {
		tail.WriteString(" ." + api)
	}

	if r.Target != "" {
		tail.WriteString(" -> " + r.Target)
	}

	var b strings.Builder

	b.WriteString(r.Variable)

	if len(items) > 0 {
		single := "[" + strings.Join(items, ", ") + "]"
		if len(r.Variable)+len(single)+tail.Len() <= maxWidth {
			b.WriteString(single)
		} else {
			b.WriteString("[\n")

			for _, it := range items {
				b.WriteString("\t" + it + ",\n")
			}

			b.WriteString("]")
		}
	}

	b.WriteString(tail.String())

	return b.String()
}

func formatItem(spec ColumnSpec) string {
	var b strings.Builder

	b.WriteString(formatColumn(spec.ColumnName()))

	if c, ok := spec.(Condition); ok {
		b.WriteString(" " + c.Operator)

		if c.HasValue() {
			b.WriteString(" " + formatValue(c.Value))
		}

		if c.Connector != "" {
			b.WriteString(" " + c.Connector)
		}
	}

	return b.String()
}

func formatColumn(l Literal) string {
	switch l.Kind {
	case NumberLiteral:
		return l.Text
	case RawLiteral:
		return "`" + strings.ReplaceAll(l.Text, "`", "``") + "`"
	default:
		if identPattern.MatchString(l.Text) && !dslKeywords[l.Text] {
			return l.Text
		}

		return quotePython(l.Text)
	}
}

func formatValue(l Literal) string {
	if l.Kind == RawLiteral && pythonConstants[l.Text] {
		return l.Text
	}

	if l.Kind == StringLiteral && pythonConstants[l.Text] {
		return quotePython(l.Text)
	}

	return formatColumn(l)
}
