package pdchain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain"
)

func TestColumnMeta_Spec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta pdchain.ColumnMeta
		want pdchain.ColumnSpec
	}{
		{
			name: "plain",
			meta: pdchain.ColumnMeta{Column: "age"},
			want: pdchain.Plain{Column: pdchain.Str("age")},
		},
		{
			name: "numeric plain",
			meta: pdchain.ColumnMeta{Column: "3"},
			want: pdchain.Plain{Column: pdchain.Num("3")},
		},
		{
			name: "string column that looks numeric",
			meta: pdchain.ColumnMeta{Column: "3", ColumnKind: "string"},
			want: pdchain.Plain{Column: pdchain.Str("3")},
		},
		{
			name: "condition",
			meta: pdchain.ColumnMeta{Column: "age", Operator: ">", Condition: "18", Connector: "&"},
			want: pdchain.Condition{Column: pdchain.Str("age"), Operator: ">", Value: pdchain.Num("18"), Connector: "&"},
		},
		{
			name: "condition raw value",
			meta: pdchain.ColumnMeta{Column: "d", Operator: ">", Condition: "today", ConditionKind: "raw"},
			want: pdchain.Condition{Column: pdchain.Str("d"), Operator: ">", Value: pdchain.Raw("today")},
		},
		{
			name: "condition without value",
			meta: pdchain.ColumnMeta{Column: "d", Operator: "=="},
			want: pdchain.Condition{Column: pdchain.Str("d"), Operator: "=="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.meta.Spec()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.meta, got.Meta(), "flat form survives a round trip")
		})
	}
}

func TestEncodeColumnMeta(t *testing.T) {
	t.Parallel()

	rows := []pdchain.ColumnMeta{
		{Column: "first name", Operator: "==", Condition: "Kim & Lee", Connector: "|"},
		{Column: "age"},
	}

	enc, err := pdchain.EncodeColumnMeta(rows)
	require.NoError(t, err)
	assert.NotContains(t, enc, " ")
	assert.NotContains(t, enc, "&")

	got, err := pdchain.DecodeColumnMeta(enc)
	require.NoError(t, err)

	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("decoded rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeColumnMeta_Errors(t *testing.T) {
	t.Parallel()

	rows, err := pdchain.DecodeColumnMeta("")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = pdchain.DecodeColumnMeta("%zz")
	require.ErrorIs(t, err, pdchain.ErrBadColumnMeta)

	_, err = pdchain.DecodeColumnMeta("not-json")
	require.ErrorIs(t, err, pdchain.ErrBadColumnMeta)
}
