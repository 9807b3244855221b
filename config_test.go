package pdchain_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain"
)

func TestLoadConfig_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfgYAML := `
connector: "|"
output: explain
metadata:
  file: meta/vars.yaml
serve:
  addr: ":8088"
watch:
  debounce: 250ms
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pdchain.yaml"), []byte(cfgYAML), 0o644))

	cfg, err := pdchain.LoadConfig(nested)
	require.NoError(t, err)

	assert.Equal(t, "|", cfg.Connector)
	assert.Equal(t, "explain", cfg.Output)
	assert.Equal(t, filepath.Join(root, "meta", "vars.yaml"), cfg.Metadata.File)
	assert.Empty(t, cfg.Metadata.SQLite)
	assert.Equal(t, ":8088", cfg.Serve.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)

	b := pdchain.NewBuilder(cfg.BuilderOptions()...)
	res := b.Build("df", pdchain.SpecsFromMeta([]pdchain.ColumnMeta{
		{Column: "a", Operator: ">", Condition: "1"},
		{Column: "b", Operator: "<", Condition: "2"},
	}), "", "")
	assert.Equal(t, "df[df['a'] > 1 | df['b'] < 2]", res.Render())
}

func TestFindConfig_NotFound(t *testing.T) {
	t.Parallel()

	_, err := pdchain.FindConfig(t.TempDir())
	// A config further up the real filesystem would be found; only assert the sentinel when nothing is.
	if err != nil {
		require.ErrorIs(t, err, pdchain.ErrConfigNotFound)
	}
}

func TestConfig_NilBuilderOptions(t *testing.T) {
	t.Parallel()

	var cfg *pdchain.Config
	assert.Nil(t, cfg.BuilderOptions())
}

func TestConfig_ParenthesizeOption(t *testing.T) {
	t.Parallel()

	cfg := &pdchain.Config{Parenthesize: true}
	res := pdchain.NewBuilder(cfg.BuilderOptions()...).Build("df", pdchain.SpecsFromMeta([]pdchain.ColumnMeta{
		{Column: "a", Operator: ">", Condition: "1", Connector: "|"},
		{Column: "b", Operator: "<", Condition: "2"},
	}), "", "")
	assert.Equal(t, "df[(df['a'] > 1) | (df['b'] < 2)]", res.Render())
}
