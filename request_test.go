package pdchain_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain"
)

const requestYAML = `
name: adults
variable: df
columns:
  - column: age
    operator: ">"
    condition: "18"
    connector: "&"
  - column: age
    operator: "<"
    condition: "65"
  - column: name
returns: Series
api: head()
target: adults
---
name: shape
variable: df
api: shape
`

func TestLoadRequestFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "people.chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(requestYAML), 0o644))

	reqs, err := pdchain.LoadRequestFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "adults", reqs[0].Name)
	assert.Equal(t, pdchain.Series, reqs[0].ReturnType)
	assert.Len(t, reqs[0].Columns, 3)
	assert.Equal(t, "adults = df[df['age'] > 18 & df['age'] < 65]['name'].head()", reqs[0].Code(nil))
	assert.Equal(t, "df.shape", reqs[1].Code(nil))
}

func TestDecodeRequests_Empty(t *testing.T) {
	t.Parallel()

	_, err := pdchain.DecodeRequests(strings.NewReader(""))
	require.ErrorIs(t, err, pdchain.ErrNoRequests)

	_, err = pdchain.DecodeRequests(strings.NewReader("variable: [unclosed"))
	require.Error(t, err)
}

func TestRequest_CodeEmptyVariable(t *testing.T) {
	t.Parallel()

	req := &pdchain.Request{Columns: []pdchain.ColumnMeta{{Column: "a"}}, Target: "x"}
	assert.Empty(t, req.Code(nil))
}
