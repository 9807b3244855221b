package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/analysis"
)

// Formatter renders request events and results.
type Formatter interface {
	Format(event Event, result *Result) error
	Summary(result *Result) error
}

// FormatHandler is a Handler that delegates to a Formatter.
type FormatHandler struct {
	formatter Formatter
	stderr    io.Writer
}

// NewFormatHandler creates a handler that formats events.
func NewFormatHandler(f Formatter, stderr io.Writer) *FormatHandler {
	return &FormatHandler{formatter: f, stderr: stderr}
}

// Event formats the event.
func (h *FormatHandler) Event(_ context.Context, event Event, result *Result) error {
	return h.formatter.Format(event, result)
}

// Err writes to stderr.
func (h *FormatHandler) Err(text string) error {
	_, err := h.stderr.Write([]byte(text + "\n"))

	return err
}

// Summary renders the final summary.
func (h *FormatHandler) Summary(result *Result) error {
	return h.formatter.Summary(result)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// -----------------------------------------------------------------------------
// Code Formatter
// -----------------------------------------------------------------------------

// CodeFormatter prints one line of generated code per request. Failed
// requests become Python comments so the output stays pasteable.
type CodeFormatter struct {
	w io.Writer
}

// NewCodeFormatter creates a code formatter.
func NewCodeFormatter(w io.Writer) *CodeFormatter {
	return &CodeFormatter{w: w}
}

// Format prints the code for terminal events.
func (c *CodeFormatter) Format(event Event, _ *Result) error {
	var err error

	switch event.Action {
	case ActionPass:
		if event.Code != "" {
			_, err = fmt.Fprintln(c.w, event.Code)
		}
	case ActionFail:
		for _, d := range event.Diagnostics {
			if d.Severity == analysis.SeverityError {
				_, err = fmt.Fprintf(c.w, "# %s: %s\n", event.PathString(), d)
			}
		}
	case ActionError:
		_, err = fmt.Fprintf(c.w, "# %s: %v\n", event.PathString(), event.Error)
	case ActionRun, ActionSkip:
		return nil
	}

	return err
}

// Summary prints nothing when every request passed.
func (c *CodeFormatter) Summary(result *Result) error {
	if result.Ok() {
		return nil
	}

	_, err := fmt.Fprintf(c.w, "# %d of %d requests failed\n", result.Failures(), result.Total)

	return err
}

// -----------------------------------------------------------------------------
// Verbose Formatter
// -----------------------------------------------------------------------------

// VerboseFormatter prints request names, code and every diagnostic.
type VerboseFormatter struct {
	w io.Writer
}

// NewVerboseFormatter creates a verbose formatter.
func NewVerboseFormatter(w io.Writer) *VerboseFormatter {
	return &VerboseFormatter{w: w}
}

// Format prints each event as it occurs.
func (v *VerboseFormatter) Format(event Event, _ *Result) error {
	switch event.Action {
	case ActionRun:
		_, _ = fmt.Fprintf(v.w, "=== RUN   %s\n", event.PathString())
	case ActionPass:
		_, _ = fmt.Fprintf(v.w, "--- PASS: %s (%s)\n", event.PathString(), event.Elapsed)
		_, _ = fmt.Fprintf(v.w, "    %s\n", event.Code)
	case ActionFail:
		_, _ = fmt.Fprintf(v.w, "--- FAIL: %s (%s)\n", event.PathString(), event.Elapsed)
		_, _ = fmt.Fprintf(v.w, "    %s\n", event.Code)
	case ActionSkip:
		_, _ = fmt.Fprintf(v.w, "--- SKIP: %s\n", event.PathString())
	case ActionError:
		_, _ = fmt.Fprintf(v.w, "--- ERROR: %s (%s)\n", event.PathString(), event.Elapsed)
		_, _ = fmt.Fprintf(v.w, "    %v\n", event.Error)
	}

	for _, d := range event.Diagnostics {
		_, _ = fmt.Fprintf(v.w, "    %s\n", d)
	}

	return nil
}

// Summary prints the final results.
func (v *VerboseFormatter) Summary(result *Result) error {
	_, _ = fmt.Fprintln(v.w)

	status := "PASS"
	if !result.Ok() {
		status = "FAIL"
	}

	_, _ = fmt.Fprintf(v.w, "%s\n", status)
	_, _ = fmt.Fprintf(v.w, "  %d total, %d passed, %d failed, %d skipped, %d errors\n",
		result.Total,
		result.Passed,
		result.Failed,
		result.Skipped,
		result.Errors,
	)
	_, _ = fmt.Fprintf(v.w, "  elapsed: %s\n", result.Elapsed().Round(time.Millisecond))

	return nil
}

// -----------------------------------------------------------------------------
// JSON Formatter
// -----------------------------------------------------------------------------

// JSONFormatter outputs newline-delimited JSON, one object per finished request.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

type jsonEvent struct {
	Time        string                `json:"time"`
	Action      string                `json:"action"`
	File        string                `json:"file,omitempty"`
	Name        string                `json:"name"`
	Elapsed     float64               `json:"elapsed,omitempty"`
	Code        string                `json:"code,omitempty"`
	Chain       *pdchain.Chain        `json:"chain,omitempty"`
	Columns     []pdchain.ColumnMeta  `json:"columns,omitempty"`
	Encoded     string                `json:"encoded,omitempty"`
	ReturnType  pdchain.ReturnType    `json:"returnType,omitempty"`
	Locked      bool                  `json:"returnTypeLocked,omitempty"`
	Diagnostics []analysis.Diagnostic `json:"diagnostics,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Format outputs a JSON object for terminal events.
func (j *JSONFormatter) Format(event Event, _ *Result) error {
	if !event.Action.IsTerminal() {
		return nil
	}

	je := jsonEvent{
		Time:        event.Time.Format(time.RFC3339Nano),
		Action:      string(event.Action),
		File:        event.File,
		Name:        event.Name,
		Elapsed:     event.Elapsed.Seconds(),
		Code:        event.Code,
		Diagnostics: event.Diagnostics,
	}

	if res := event.Result; res != nil {
		je.Chain = res.Chain
		je.Columns = res.Meta()
		je.ReturnType = res.ReturnType
		je.Locked = res.ReturnTypeLocked

		enc, err := pdchain.EncodeColumnMeta(je.Columns)
		if err != nil {
			return err
		}

		je.Encoded = enc
	}

	if event.Error != nil {
		je.Error = event.Error.Error()
	}

	return j.enc.Encode(je)
}

type jsonSummary struct {
	Action  string  `json:"action"`
	Total   int     `json:"total"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Skipped int     `json:"skipped"`
	Errors  int     `json:"errors"`
	Elapsed float64 `json:"elapsed"`
	Ok      bool    `json:"ok"`
}

// Summary outputs the final JSON summary.
func (j *JSONFormatter) Summary(result *Result) error {
	return j.enc.Encode(jsonSummary{
		Action:  "summary",
		Total:   result.Total,
		Passed:  result.Passed,
		Failed:  result.Failed,
		Skipped: result.Skipped,
		Errors:  result.Errors,
		Elapsed: result.Elapsed().Seconds(),
		Ok:      result.Ok(),
	})
}

// -----------------------------------------------------------------------------
// Explain Formatter
// -----------------------------------------------------------------------------

// ExplainFormatter prints each chain's blocks as a table, followed by its
// return type and diagnostics. Styling is applied only when color is set.
type ExplainFormatter struct {
	w      io.Writer
	styles explainStyles
}

type explainStyles struct {
	title, code, header, dim lipgloss.Style
	severity                 map[analysis.Severity]lipgloss.Style
}

func newExplainStyles(color bool) explainStyles {
	plain := lipgloss.NewStyle()
	if !color {
		return explainStyles{
			title: plain, code: plain, header: plain, dim: plain,
			severity: map[analysis.Severity]lipgloss.Style{},
		}
	}

	return explainStyles{
		title:  lipgloss.NewStyle().Bold(true),
		code:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		severity: map[analysis.Severity]lipgloss.Style{
			analysis.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
			analysis.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			analysis.SeverityHint:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		},
	}
}

// NewExplainFormatter creates an explain formatter.
func NewExplainFormatter(w io.Writer, color bool) *ExplainFormatter {
	return &ExplainFormatter{w: w, styles: newExplainStyles(color)}
}

// Format prints the block table of each finished request.
func (e *ExplainFormatter) Format(event Event, _ *Result) error {
	switch event.Action {
	case ActionRun, ActionSkip:
		return nil
	case ActionError:
		_, err := fmt.Fprintf(e.w, "%s\n  %v\n\n", e.styles.title.Render(event.PathString()), event.Error)
		return err
	case ActionPass, ActionFail:
	}

	var b strings.Builder

	b.WriteString(e.styles.title.Render(event.PathString()))
	b.WriteString("\n  ")
	b.WriteString(e.styles.code.Render(event.Code))
	b.WriteString("\n")

	if res := event.Result; res != nil && !res.Chain.Empty() {
		b.WriteString(e.blockTable(res.Chain))
		b.WriteString("\n")

		lock := "selectable"
		if res.ReturnTypeLocked {
			lock = "fixed"
		}

		b.WriteString(e.styles.dim.Render(fmt.Sprintf("  returns %s (%s)", orDash(string(res.ReturnType)), lock)))
		b.WriteString("\n")
	}

	for _, d := range event.Diagnostics {
		b.WriteString("  ")
		b.WriteString(e.styles.severity[d.Severity].Render(d.String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")

	_, err := io.WriteString(e.w, b.String())

	return err
}

func (e *ExplainFormatter) blockTable(c *pdchain.Chain) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("#", "KIND", "CODE", "NEXT", "CHILD", "LEFT", "RIGHT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return e.styles.header
			}

			return lipgloss.NewStyle()
		})

	for i, blk := range c.Blocks() {
		t.Row(
			strconv.Itoa(i),
			blk.Kind.String(),
			blk.Code,
			link(blk.Next),
			link(blk.Child),
			link(blk.Left),
			link(blk.Right),
		)
	}

	return t.Render()
}

func link(i int) string {
	if i == pdchain.NoLink {
		return "-"
	}

	return strconv.Itoa(i)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// Summary prints the final counts.
func (e *ExplainFormatter) Summary(result *Result) error {
	_, err := fmt.Fprintf(e.w, "%d requests, %d passed, %d failed, %d skipped, %d errors\n",
		result.Total, result.Passed, result.Failed, result.Skipped, result.Errors)

	return err
}

// Formats lists the names accepted by NewFormatter.
var Formats = []string{"plain", "verbose", "json", "explain"}

// NewFormatter creates a formatter by name. Explain output is colored
// only when w is a terminal.
func NewFormatter(name string, w io.Writer) (Formatter, error) {
	switch name {
	case "", "plain":
		return NewCodeFormatter(w), nil
	case "verbose":
		return NewVerboseFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "explain":
		return NewExplainFormatter(w, IsTerminal(w)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}
