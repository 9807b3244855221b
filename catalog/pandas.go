package catalog

import "github.com/rlch/pdchain"

func init() {
	Register(pdchain.DataFrame, pandasEntries("DataFrame", dataFrameCodes)...)
	Register(pdchain.Series, pandasEntries("Series", seriesCodes)...)
}

func pandasEntries(typ string, codes []string) []Entry {
	out := make([]Entry, 0, len(codes))
	for _, code := range codes {
		e := Entry{Code: code}
		e.Name = "pandas." + typ + "." + e.Ident()

		if code == "loc[]" || code == "iloc[]" {
			e.Name += "[]"
		}

		out = append(out, e)
	}

	return out
}

var dataFrameCodes = []string{
	"index", "columns", "dtypes", "select_dtypes()", "values", "shape",
	"head()", "loc[]", "iloc[]", "items()", "keys()", "tail()", "where()",
	"add()", "sub()", "mul()", "div()",
	"all()", "any()", "count()", "describe()", "max()", "mean()", "min()", "sum()", "std()",
	"drop()", "drop_duplicates()", "dropna()", "fillna()",
	"isna()", "isnull()", "notna()", "notnull()", "replace()", "T",
}

var seriesCodes = []string{
	"index", "array", "values", "dtype", "shape", "size", "T",
	"unique()", "value_counts()", "hasnans", "dtypes", "loc[]", "iloc[]", "items()", "keys()",
	"add()", "sub()", "mul()", "div()",
	"all()", "any()", "count()", "describe()", "max()", "mean()", "min()", "sum()", "std()",
	"drop()", "drop_duplicates()", "dropna()", "fillna()",
	"isna()", "isnull()", "notna()", "notnull()", "replace()", "map(lambda p: p)",
}
