package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rlch/pdchain/analysis"
	"github.com/rlch/pdchain/metadata"
)

// Options configures Run.
type Options struct {
	Analyzer *analysis.Analyzer
	Source   metadata.Source
	// Initial is the starting selection text.
	Initial string

	Input  io.Reader
	Output io.Writer
}

// Run shows the builder until the user accepts or quits. It returns the
// accepted code line, or "" when the user quit.
func Run(ctx context.Context, opts Options) (string, error) {
	a := opts.Analyzer
	if a == nil {
		a = analysis.NewAnalyzer(analysis.WithSource(opts.Source))
	}

	m := NewModel(ctx, a, opts.Source, opts.Initial)

	popts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if opts.Input != nil {
		popts = append(popts, tea.WithInput(opts.Input))
	}

	if opts.Output != nil {
		popts = append(popts, tea.WithOutput(opts.Output))
	}

	final, err := tea.NewProgram(m, popts...).Run()
	if err != nil {
		return "", err
	}

	fm, ok := final.(*Model)
	if !ok || !fm.Accepted() {
		return "", nil
	}

	return fm.Code(), nil
}
