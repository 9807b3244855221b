package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the builder.
type Styles struct {
	Title   lipgloss.Style
	Prompt  lipgloss.Style
	Code    lipgloss.Style
	Dim     lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Hint    lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
}

// DefaultStyles returns the standard color scheme.
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		Prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
		Code:    lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")),
		Hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")),
		Border:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7D56F4")).Padding(0, 1),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Padding(1, 0, 0, 0),
	}
}
