package pdchain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  *pdchain.Request
		want string
	}{
		{
			name: "bare variable",
			req:  &pdchain.Request{Variable: "df"},
			want: "df",
		},
		{
			name: "full request",
			req: &pdchain.Request{
				Variable: "df",
				Columns: []pdchain.ColumnMeta{
					{Column: "age", Operator: ">", Condition: "18", Connector: "&"},
					{Column: "age", Operator: "<", Condition: "65"},
					{Column: "name"},
				},
				ReturnType: pdchain.Series,
				Api:        ".head(5)",
				Target:     "out",
			},
			want: "df[age > 18 &, age < 65, name] : Series .head(5) -> out",
		},
		{
			name: "quoting",
			req: &pdchain.Request{
				Variable: "df",
				Columns: []pdchain.ColumnMeta{
					{Column: "first name", Operator: "==", Condition: "it's"},
					{Column: "in"},
					{Column: "3", ColumnKind: "string"},
					{Column: "flag", Operator: "==", Condition: "None"},
					{Column: "flag", Operator: "==", Condition: "None", ConditionKind: "string"},
					{Column: "d", Operator: ">", Condition: "pd.Timestamp('2020')", ConditionKind: "raw"},
				},
			},
			want: "df['first name' == \"it's\", 'in', '3', flag == None, flag == 'None', d > `pd.Timestamp('2020')`]",
		},
		{
			name: "raw with backtick",
			req: &pdchain.Request{
				Variable: "df",
				Columns: []pdchain.ColumnMeta{
					{Column: "x", Operator: ">", Condition: "df['a`b'].max()", ConditionKind: "raw"},
				},
			},
			want: "df[x > `df['a``b'].max()`]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := pdchain.Format(tt.req)
			assert.Equal(t, tt.want, got)

			sel, err := pdchain.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, tt.req.Code(nil), sel.Request().Code(nil), "formatted text builds the same chain")
		})
	}
}

func TestFormatWithWidth_Splits(t *testing.T) {
	t.Parallel()

	req := &pdchain.Request{
		Variable: "sales",
		Columns: []pdchain.ColumnMeta{
			{Column: "region", Operator: "==", Condition: "north", Connector: "|"},
			{Column: "region", Operator: "==", Condition: "south"},
		},
		Api: "sum()",
	}

	got := pdchain.FormatWithWidth(req, 20)
	want := "sales[\n\tregion == north |,\n\tregion == south,\n] .sum()"
	assert.Equal(t, want, got)

	sel, err := pdchain.Parse(got)
	require.NoError(t, err)

	back := sel.Request()
	if diff := cmp.Diff(req.Columns, back.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_RawBacktickRoundTrip(t *testing.T) {
	t.Parallel()

	req := &pdchain.Request{
		Variable: "df",
		Columns: []pdchain.ColumnMeta{
			{Column: "`", ColumnKind: "raw"},
			{Column: "q", Operator: "==", Condition: "a``b", ConditionKind: "raw"},
		},
	}

	sel, err := pdchain.Parse(pdchain.Format(req))
	require.NoError(t, err)

	if diff := cmp.Diff(req.Specs(), sel.Request().Specs()); diff != "" {
		t.Errorf("specs mismatch (-want +got):\n%s", diff)
	}
}
