package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rlch/pdchain"
)

// HiddenNames are namespace entries never offered as variables.
var HiddenNames = []string{"In", "Out", "exit", "quit", "get_ipython", "json"}

// callableTypes are the type names that list a member as a method.
var callableTypes = map[string]bool{"function": true, "method": true, "type": true, "builtin_function_or_method": true}

// DirScript returns Python that prints the members of expr (or of the
// global namespace when expr is empty) as JSON: {"type": ..., "list": [{"name", "type"}]}.
// Parentheses are stripped from expr so calls are not re-executed.
func DirScript(expr string) string {
	expr = strings.NewReplacer("(", "", ")", "").Replace(expr)
	hidden, _ := json.Marshal(HiddenNames)

	var b strings.Builder

	b.WriteString("import json\n")
	fmt.Fprintf(&b, "_vp_vars = dir(%s)\n", expr)
	b.WriteString("print(json.dumps(")

	if expr == "" {
		b.WriteString("{ 'type': 'None', 'list': [")
		b.WriteString("{ 'name': v, 'type': type(eval(v)).__name__ } ")
	} else {
		fmt.Fprintf(&b, "{ 'type': type(%s).__name__, 'list': [", expr)
		fmt.Fprintf(&b, "{ 'name': v, 'type': type(eval('%s.' + v)).__name__ } ", expr)
	}

	fmt.Fprintf(&b, " for v in _vp_vars if (not v.startswith('_')) and (v not in %s)", hidden)
	b.WriteString("]}))\n")

	return b.String()
}

// ColumnsScript returns Python that prints the columns of a DataFrame with
// their dtypes as JSON: [{"value": name, "dtype": dtype}].
func ColumnsScript(variable string) string {
	return "import json\n" +
		fmt.Sprintf(`print(json.dumps([ { "value": c, "dtype": str(%s[c].dtype) } for c in %s.columns ]))`, variable, variable) +
		"\n"
}

// UniquesScript returns Python that prints the sorted distinct values of a
// column as JSON; string values arrive already quoted.
func UniquesScript(variable, column string) string {
	var b strings.Builder

	b.WriteString("import json\n")
	fmt.Fprintf(&b, "_vpcoluniq = %s[%s].unique()\n", variable, pdchain.Classify(column).Quote())
	b.WriteString("_vpcoluniq.sort()\n")
	b.WriteString(`print(json.dumps([ { "value": ("'" + c + "'") if type(c).__name__ == 'str' else c, "label": c } for c in list(_vpcoluniq) ]))`)
	b.WriteString("\n")

	return b.String()
}

// Member is an attribute or method reported by DirScript.
type Member struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Dir is the decoded output of DirScript.
type Dir struct {
	Type    string
	Attrs   []Member
	Methods []Member
}

// ParseDir decodes DirScript output, splitting callables from attributes.
// Method names get a trailing "()".
func ParseDir(out []byte) (*Dir, error) {
	var raw struct {
		Type string   `json:"type"`
		List []Member `json:"list"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decode dir output: %w", err)
	}

	d := &Dir{Type: raw.Type}

	for _, m := range raw.List {
		if callableTypes[m.Type] {
			m.Name += "()"
			d.Methods = append(d.Methods, m)

			continue
		}

		d.Attrs = append(d.Attrs, m)
	}

	return d, nil
}

// ParseColumns decodes ColumnsScript output.
func ParseColumns(out []byte) ([]Column, error) {
	var raw []struct {
		Value any    `json:"value"`
		Dtype string `json:"dtype"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decode columns output: %w", err)
	}

	cols := make([]Column, len(raw))
	for i, r := range raw {
		cols[i] = Column{Name: fmt.Sprint(r.Value), Dtype: r.Dtype}
	}

	return cols, nil
}

// ParseUniques decodes UniquesScript output. Pre-quoted strings are kept
// raw, numbers bare.
func ParseUniques(out []byte) ([]pdchain.Literal, error) {
	var raw []struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decode uniques output: %w", err)
	}

	lits := make([]pdchain.Literal, 0, len(raw))

	for _, r := range raw {
		// null must be matched before the string decode, which accepts it.
		text := strings.TrimSpace(string(r.Value))

		switch text {
		case "", "null":
			lits = append(lits, pdchain.Raw("None"))
			continue
		case "true":
			lits = append(lits, pdchain.Raw("True"))
			continue
		case "false":
			lits = append(lits, pdchain.Raw("False"))
			continue
		}

		var s string
		if err := json.Unmarshal(r.Value, &s); err == nil {
			lits = append(lits, pdchain.Classify(s))
			continue
		}

		lits = append(lits, pdchain.Num(text))
	}

	return lits, nil
}
