package pdchain

// ReturnType names the pandas object a chain evaluates to.
type ReturnType string

// Known return types.
const (
	DataFrame ReturnType = "DataFrame"
	Series    ReturnType = "Series"
)

// Comparison operators offered for condition rows.
const (
	OpEq  = "=="
	OpNe  = "!="
	OpLt  = "<"
	OpLe  = "<="
	OpGt  = ">"
	OpGe  = ">="
	OpIn  = "in"
	OpNot = "not in"
)

// Boolean connectors joining adjacent conditions.
const (
	ConnAnd = "&"
	ConnOr  = "|"
)

// Operators lists the comparison operators in UI order.
var Operators = []string{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn, OpNot}

// Connectors lists the boolean connectors in UI order.
var Connectors = []string{ConnAnd, ConnOr}

// IsOperator reports whether op is a known comparison operator.
func IsOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}

	return false
}

// IsConnector reports whether c is a known boolean connector.
func IsConnector(c string) bool {
	return c == ConnAnd || c == ConnOr
}
