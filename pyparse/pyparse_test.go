package pyparse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/pyparse"
)

func TestCheck_Valid(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"df",
		"df[['age', 'name']]",
		"adults = df[df['age'] > 18 & df['age'] < 65]['name'].head(5)",
		`df[df['name'] == "it's"].count()`,
		"df[df['kind'] in ['a', 'b']]",
	} {
		assert.NoError(t, pyparse.Check(context.Background(), src), src)
	}
}

func TestCheck_Invalid(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"df[['age'",
		"df[df['a'] ==]",
		"class = df",
		"df.head(",
	} {
		err := pyparse.Check(context.Background(), src)
		require.Error(t, err, src)
		assert.ErrorIs(t, err, pyparse.ErrSyntax, src)

		var se *pyparse.SyntaxError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 1, se.Line)
	}
}

func TestCheck_BuiltChains(t *testing.T) {
	t.Parallel()

	sel := pdchain.MustParse("df[age > 18 &, city == Seoul, name] : Series .value_counts() -> counts")
	assert.NoError(t, pyparse.Check(context.Background(), sel.Request().Code(nil)))
}
