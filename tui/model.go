// Package tui is an interactive terminal builder: type a selection, see
// the generated code, its diagnostics and a preview of matching rows as
// you type.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/analysis"
	"github.com/rlch/pdchain/catalog"
	"github.com/rlch/pdchain/metadata"
	"github.com/rlch/pdchain/preview"
)

// previewRows is how many sample rows are shown.
const previewRows = 5

// checkedMsg carries the outcome of one rebuild.
type checkedMsg struct {
	seq      int
	input    string
	checked  *analysis.Checked
	parseErr error

	// previewErr is set when the selection checked clean but could not
	// be applied to the sample rows.
	previewErr error
	rows       []map[string]any
	columns    []string
	variables  []string
}

// Model is the bubbletea model for the builder.
type Model struct {
	ctx      context.Context
	analyzer *analysis.Analyzer
	source   metadata.Source
	styles   *Styles

	input textinput.Model
	width int

	// seq numbers rebuilds; results from older rebuilds are dropped.
	seq int

	last     checkedMsg
	accepted bool
}

// NewModel creates a builder model. source may be nil.
func NewModel(ctx context.Context, a *analysis.Analyzer, source metadata.Source, initial string) *Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Prompt = "› "
	ti.PromptStyle = styles.Prompt
	ti.Placeholder = "df[age > 18 &, age < 65, name] : Series .head() -> out"
	ti.ShowSuggestions = true
	ti.SetValue(initial)
	ti.Focus()

	return &Model{
		ctx:      ctx,
		analyzer: a,
		source:   source,
		styles:   styles,
		input:    ti,
		width:    80,
	}
}

// Init starts the first rebuild.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.rebuild())
}

// rebuild bumps the sequence number and checks the current input.
func (m *Model) rebuild() tea.Cmd {
	m.seq++

	seq, input := m.seq, m.input.Value()
	ctx, a, src := m.ctx, m.analyzer, m.source

	return func() tea.Msg {
		return check(ctx, a, src, seq, input)
	}
}

func check(ctx context.Context, a *analysis.Analyzer, src metadata.Source, seq int, input string) checkedMsg {
	msg := checkedMsg{seq: seq, input: input}

	if src != nil {
		msg.variables, _ = src.Variables(ctx)
	}

	if strings.TrimSpace(input) == "" {
		return msg
	}

	sel, err := pdchain.Parse(input)
	if err != nil {
		msg.parseErr = err
		return msg
	}

	req := sel.Request()

	msg.checked, err = a.Check(ctx, req)
	if err != nil {
		msg.parseErr = err
		return msg
	}

	if src != nil && !msg.checked.HasErrors() {
		msg.rows, msg.columns, msg.previewErr = preview.Run(ctx, src, req, previewRows)
	}

	return msg
}

// Update handles keys and rebuild results.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 20)

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.Code() != "" {
				m.accepted = true
				return m, tea.Quit
			}

			return m, nil
		}

	case checkedMsg:
		if msg.seq != m.seq {
			return m, nil
		}

		m.last = msg
		m.input.SetSuggestions(m.suggestions())

		return m, nil
	}

	before := m.input.Value()

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	if m.input.Value() != before {
		return m, tea.Batch(cmd, m.rebuild())
	}

	return m, cmd
}

// suggestions offers completions of the whole input: variable names before
// any bracket, api names after the last dot of a parsed selection.
func (m *Model) suggestions() []string {
	input := m.last.input

	if !strings.ContainsAny(input, "[.:") {
		return m.last.variables
	}

	dot := strings.LastIndex(input, ".")
	if dot < 0 || m.last.checked == nil {
		return nil
	}

	rt := m.last.checked.Result.ReturnType
	if rt == "" && m.last.checked.Variable != nil {
		rt = pdchain.ReturnType(m.last.checked.Variable.Type)
	}

	var out []string
	for _, e := range catalog.Search(rt, input[dot+1:]) {
		out = append(out, input[:dot+1]+e.Code)
	}

	return out
}

// Code returns the code for the latest rebuild of the current input, or ""
// when the input does not parse.
func (m *Model) Code() string {
	if m.last.checked == nil || m.last.seq != m.seq {
		return ""
	}

	return m.last.checked.Code
}

// Accepted reports whether the user confirmed with enter.
func (m *Model) Accepted() bool { return m.accepted }

// View renders the builder.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("pdchain"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	var body []string

	switch {
	case m.last.parseErr != nil:
		body = append(body, m.styles.Error.Render(m.last.parseErr.Error()))
	case m.last.checked != nil:
		c := m.last.checked
		body = append(body, m.styles.Code.Render(c.Code))

		lock := "selectable with : DataFrame / : Series"
		if c.Result.ReturnTypeLocked {
			lock = "fixed"
		}

		if c.Result.ReturnType != "" {
			body = append(body, m.styles.Dim.Render(fmt.Sprintf("returns %s (%s)", c.Result.ReturnType, lock)))
		}

		for _, d := range c.Diagnostics {
			body = append(body, m.severityStyle(d.Severity).Render(d.String()))
		}
	default:
		body = append(body, m.styles.Dim.Render("type a selection"))
	}

	switch {
	case m.last.previewErr != nil:
		body = append(body, "", m.styles.Error.Render("preview: "+m.last.previewErr.Error()))
	case len(m.last.rows) > 0:
		body = append(body, "", m.previewTable())
	}

	b.WriteString(m.styles.Border.Width(max(m.width-4, 20)).Render(strings.Join(body, "\n")))
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("enter accept • tab complete • esc quit"))
	b.WriteString("\n")

	return b.String()
}

func (m *Model) severityStyle(s analysis.Severity) lipgloss.Style {
	switch s {
	case analysis.SeverityError:
		return m.styles.Error
	case analysis.SeverityWarning:
		return m.styles.Warning
	default:
		return m.styles.Hint
	}
}

func (m *Model) previewTable() string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(m.styles.Dim).
		Headers(m.last.columns...)

	for _, row := range m.last.rows {
		cells := make([]string, len(m.last.columns))
		for i, c := range m.last.columns {
			cells[i] = fmt.Sprint(row[c])
		}

		t.Row(cells...)
	}

	return t.Render()
}
