package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/metadata"
)

func TestDirScript(t *testing.T) {
	t.Parallel()

	global := metadata.DirScript("")
	assert.Contains(t, global, "_vp_vars = dir()\n")
	assert.Contains(t, global, "{ 'type': 'None', 'list': [")
	assert.Contains(t, global, `v not in ["In","Out","exit","quit","get_ipython","json"]`)

	member := metadata.DirScript("df.head()")
	assert.Contains(t, member, "_vp_vars = dir(df.head)\n")
	assert.Contains(t, member, "type(eval('df.head.' + v))")
}

func TestColumnsAndUniquesScript(t *testing.T) {
	t.Parallel()

	assert.Contains(t, metadata.ColumnsScript("df"), `str(df[c].dtype) } for c in df.columns`)
	assert.Contains(t, metadata.UniquesScript("df", "city"), "_vpcoluniq = df['city'].unique()\n")
	assert.Contains(t, metadata.UniquesScript("df", "0"), "_vpcoluniq = df[0].unique()\n")
}

func TestParseDir(t *testing.T) {
	t.Parallel()

	out := []byte(`{"type": "DataFrame", "list": [
		{"name": "shape", "type": "tuple"},
		{"name": "head", "type": "method"},
		{"name": "T", "type": "DataFrame"}
	]}`)

	d, err := metadata.ParseDir(out)
	require.NoError(t, err)
	assert.Equal(t, "DataFrame", d.Type)
	assert.Equal(t, []metadata.Member{{Name: "head()", Type: "method"}}, d.Methods)
	assert.Equal(t, []metadata.Member{{Name: "shape", Type: "tuple"}, {Name: "T", Type: "DataFrame"}}, d.Attrs)

	_, err = metadata.ParseDir([]byte("oops"))
	require.Error(t, err)
}

func TestParseColumns(t *testing.T) {
	t.Parallel()

	cols, err := metadata.ParseColumns([]byte(`[{"value": "age", "dtype": "int64"}, {"value": 0, "dtype": "float64"}]`))
	require.NoError(t, err)
	assert.Equal(t, []metadata.Column{{Name: "age", Dtype: "int64"}, {Name: "0", Dtype: "float64"}}, cols)
}

func TestParseUniques(t *testing.T) {
	t.Parallel()

	lits, err := metadata.ParseUniques([]byte(`[
		{"value": "'Seoul'", "label": "Seoul"},
		{"value": 3.5, "label": 3.5},
		{"value": null, "label": null},
		{"value": true, "label": true}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []pdchain.Literal{
		pdchain.Raw("'Seoul'"),
		pdchain.Num("3.5"),
		pdchain.Raw("None"),
		pdchain.Raw("True"),
	}, lits)
}

func TestParseUniques_NullIsNone(t *testing.T) {
	t.Parallel()

	lits, err := metadata.ParseUniques([]byte(`[{"value": null}, {"value": "null"}, {"label": "x"}, {"value": false}]`))
	require.NoError(t, err)
	assert.Equal(t, []pdchain.Literal{
		pdchain.Raw("None"),
		pdchain.Str("null"),
		pdchain.Raw("None"),
		pdchain.Raw("False"),
	}, lits)
}
