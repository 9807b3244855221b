package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pdchain/analysis"
	"github.com/rlch/pdchain/metadata"
)

const peopleYAML = `
variables:
  people:
    columns:
      - {name: name, dtype: object}
      - {name: age, dtype: int64}
    rows:
      - {name: Kim, age: 31}
      - {name: Lee, age: 17}
`

func newTestModel(t *testing.T, initial string) *Model {
	t.Helper()

	src, err := metadata.ParseFile([]byte(peopleYAML))
	require.NoError(t, err)

	return NewModel(context.Background(), analysis.NewAnalyzer(analysis.WithSource(src)), src, initial)
}

// settle runs the rebuild for the current input and feeds the result back.
func settle(t *testing.T, m *Model) {
	t.Helper()

	msg := check(m.ctx, m.analyzer, m.source, m.seq, m.input.Value())
	_, _ = m.Update(msg)
}

func typeText(m *Model, s string) {
	for _, r := range s {
		_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestModel_LiveRender(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "")
	m.Init()
	settle(t, m)
	assert.Empty(t, m.Code())
	assert.Contains(t, m.View(), "type a selection")

	typeText(m, "people[age > 18] -> adults")
	settle(t, m)

	assert.Equal(t, "adults = people[people['age'] > 18]", m.Code())

	view := m.View()
	assert.Contains(t, view, "adults = people[people['age'] > 18]")
	assert.Contains(t, view, "returns DataFrame")
	assert.Contains(t, view, "Kim")
	assert.NotContains(t, view, "Lee")
}

func TestModel_StaleResultsDropped(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "people[age]")
	m.Init()

	stale := check(m.ctx, m.analyzer, m.source, m.seq, m.input.Value())

	typeText(m, " : Series")
	_, _ = m.Update(stale)
	assert.Empty(t, m.Code(), "result for an older input is ignored")

	settle(t, m)
	assert.Equal(t, "people['age']", m.Code())
}

func TestModel_Diagnostics(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "people[height")
	m.Init()
	settle(t, m)
	assert.Contains(t, m.View(), "parse selection")

	typeText(m, "]")
	settle(t, m)
	assert.Contains(t, m.View(), "unknown-column")
}

// rowlessSource fails every sample-row load.
type rowlessSource struct {
	metadata.Source
}

func (rowlessSource) Rows(context.Context, string, int) ([]map[string]any, error) {
	return nil, errors.New("kernel unavailable")
}

func TestModel_PreviewError(t *testing.T) {
	t.Parallel()

	src, err := metadata.ParseFile([]byte(peopleYAML))
	require.NoError(t, err)

	m := NewModel(context.Background(), analysis.NewAnalyzer(analysis.WithSource(src)), rowlessSource{src}, "people[age > 18]")
	m.Init()
	settle(t, m)

	require.Error(t, m.last.previewErr)
	assert.Equal(t, "people[people['age'] > 18]", m.Code(), "code is still offered")

	view := m.View()
	assert.Contains(t, view, "preview: kernel unavailable")
	assert.NotContains(t, view, "Kim")
}

func TestModel_Suggestions(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "peo")
	m.Init()
	settle(t, m)
	assert.Equal(t, []string{"people"}, m.suggestions())

	typeText(m, "ple[age] : Series .val")
	settle(t, m)
	assert.Equal(t, []string{"people[age] : Series .values", "people[age] : Series .value_counts()"}, m.suggestions())
}

func TestModel_Keys(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "people[age")
	m.Init()
	settle(t, m)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "enter does nothing without valid code")
	assert.False(t, m.Accepted())

	typeText(m, "]")
	settle(t, m)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, m.Accepted())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
