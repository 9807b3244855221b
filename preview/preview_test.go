package preview_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/metadata"
	"github.com/rlch/pdchain/preview"
)

func rows() []map[string]any {
	return []map[string]any{
		{"name": "Kim", "age": 31, "city": "Seoul"},
		{"name": "Lee", "age": 17, "city": "Busan"},
		{"name": "Park", "age": 70, "city": "Seoul"},
		{"name": "Choi", "age": 45, "city": "Incheon"},
	}
}

func names(rs []map[string]any) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i], _ = r["name"].(string)
	}

	return out
}

func TestProgram_Filter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want []string
	}{
		{"df", []string{"Kim", "Lee", "Park", "Choi"}},
		{"df[age > 18]", []string{"Kim", "Park", "Choi"}},
		{"df[age > 18 &, age < 65]", []string{"Kim", "Choi"}},
		{"df[age < 18 |, city == Seoul]", []string{"Kim", "Lee", "Park"}},
		{"df[age > 18, age < 65]", []string{"Kim", "Choi"}},
		{"df[city in `['Seoul', 'Busan']`]", []string{"Kim", "Lee", "Park"}},
		{"df[city not in `['Seoul']`]", []string{"Lee", "Choi"}},
		{"df[age > 18, name, city, city == Seoul]", []string{"Kim", "Park"}},
		{"df[age < 18 |, city == Seoul &, age > 40]", []string{"Park"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			prog, err := preview.Compile(pdchain.MustParse(tt.src).Request().Specs())
			require.NoError(t, err)

			got, err := prog.Filter(rows())
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestProgram_Expressions(t *testing.T) {
	t.Parallel()

	prog, err := preview.Compile(pdchain.MustParse("df[age > 18 |, vip == True, name]").Request().Specs())
	require.NoError(t, err)

	assert.Equal(t, []string{`((row["age"] > 18)) or (row["vip"] == true)`}, prog.Expressions())
	assert.Equal(t, []string{"name"}, prog.Columns([]string{"name", "age", "vip"}))
}

func TestProgram_Projection(t *testing.T) {
	t.Parallel()

	prog, err := preview.Compile(pdchain.MustParse("df[name, city]").Request().Specs())
	require.NoError(t, err)

	got, err := prog.Filter(rows()[:1])
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "Kim", "city": "Seoul"}}, got)

	bad, err := preview.Compile(pdchain.MustParse("df[height]").Request().Specs())
	require.NoError(t, err)

	_, err = bad.Filter(rows())
	require.ErrorIs(t, err, metadata.ErrUnknownColumn)

	dropped, err := preview.Compile(pdchain.MustParse("df[name, age > 18]").Request().Specs())
	require.NoError(t, err)

	_, err = dropped.Filter(rows())
	require.ErrorIs(t, err, metadata.ErrUnknownColumn, "mask reads a column the selection dropped")
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	_, err := preview.Compile([]pdchain.ColumnSpec{
		pdchain.Condition{Column: pdchain.Str("age"), Operator: ">"},
	})
	require.ErrorIs(t, err, preview.ErrIncomplete)

	_, err = preview.Compile([]pdchain.ColumnSpec{
		pdchain.Condition{Column: pdchain.Str("age"), Operator: "~", Value: pdchain.Num("1")},
	})
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	t.Parallel()

	src, err := metadata.ParseFile([]byte(`
variables:
  people:
    columns:
      - {name: name, dtype: object}
      - {name: age, dtype: int64}
    rows:
      - {name: Kim, age: 31}
      - {name: Lee, age: 17}
`))
	require.NoError(t, err)

	got, cols, err := preview.Run(context.Background(), src, pdchain.MustParse("people[age >= 18]").Request(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kim"}, names(got))
	assert.Equal(t, []string{"name", "age"}, cols)
}
