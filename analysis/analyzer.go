// Package analysis checks chain requests against variable metadata and
// reports problems as diagnostics.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/metadata"
)

// Severity ranks a diagnostic.
type Severity int

// Severities, most severe first.
const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	for _, v := range []Severity{SeverityError, SeverityWarning, SeverityHint} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}

	return fmt.Errorf("unknown severity %q", b)
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	// Row is the index into Request.Columns, or -1 for request-level problems.
	Row      int      `json:"row"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Row < 0 {
		return fmt.Sprintf("%s: %s [%s]", d.Severity, d.Message, d.Rule)
	}

	return fmt.Sprintf("row %d: %s: %s [%s]", d.Row+1, d.Severity, d.Message, d.Rule)
}

// Checked is a request with everything the rules look at.
type Checked struct {
	Request *pdchain.Request
	Specs   []pdchain.ColumnSpec
	Result  *pdchain.Result
	Code    string

	// Variable is nil when no metadata source is configured or the
	// variable could not be found.
	Variable *metadata.Variable

	Diagnostics []Diagnostic

	lookupErr error
	rule      *Rule
}

// HasErrors reports whether any diagnostic is an error.
func (c *Checked) HasErrors() bool {
	return len(c.Errors()) > 0
}

// Errors returns the error-level diagnostics.
func (c *Checked) Errors() []Diagnostic {
	var out []Diagnostic

	for _, d := range c.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}

	return out
}

// Report records a diagnostic for the running rule. Row is an index into
// Request.Columns, or -1.
func (c *Checked) Report(row int, format string, args ...any) {
	c.Diagnostics = append(c.Diagnostics, Diagnostic{
		Row:      row,
		Rule:     c.rule.Name,
		Severity: c.rule.Severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

// SyntaxChecker validates generated Python.
type SyntaxChecker func(ctx context.Context, code string) error

// Analyzer runs rules over requests.
type Analyzer struct {
	source  metadata.Source
	builder *pdchain.Builder
	rules   []*Rule
	syntax  SyntaxChecker
	logger  *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithSource sets the metadata source. Without one, column rules are skipped.
func WithSource(src metadata.Source) Option { return func(a *Analyzer) { a.source = src } }

// WithBuilder sets the builder used to produce code.
func WithBuilder(b *pdchain.Builder) Option { return func(a *Analyzer) { a.builder = b } }

// WithRules replaces the default rules.
func WithRules(rules ...*Rule) Option { return func(a *Analyzer) { a.rules = rules } }

// WithSyntaxChecker enables the invalid-python rule.
func WithSyntaxChecker(fn SyntaxChecker) Option { return func(a *Analyzer) { a.syntax = fn } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *Analyzer) { a.logger = l } }

// NewAnalyzer creates an analyzer with the default rules.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		builder: pdchain.NewBuilder(),
		rules:   DefaultRules(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Check builds the request and runs every rule. Metadata lookup failures
// other than unknown variables are returned as errors.
func (a *Analyzer) Check(ctx context.Context, req *pdchain.Request) (*Checked, error) {
	c := &Checked{
		Request:     req,
		Specs:       req.Specs(),
		Diagnostics: []Diagnostic{},
	}
	c.Result = a.builder.Build(req.Variable, c.Specs, req.ReturnType, req.Api)
	if rendered := c.Result.Render(); rendered != "" {
		c.Code = pdchain.CodeLine(req.Target, rendered)
	}

	if a.source != nil && req.Variable != "" {
		v, err := a.source.Variable(ctx, req.Variable)

		switch {
		case err == nil:
			c.Variable = v
		case errors.Is(err, metadata.ErrUnknownVariable):
			c.lookupErr = err
		default:
			return nil, fmt.Errorf("metadata for %s: %w", req.Variable, err)
		}
	}

	for _, r := range a.rules {
		c.rule = r
		r.Run(c)
	}

	if a.syntax != nil && c.Result.Chain.Len() > 0 {
		if err := a.syntax(ctx, c.Code); err != nil {
			c.rule = invalidPythonRule
			c.Report(-1, "%v", err)
		}
	}

	c.rule = nil

	a.logger.Debug("checked request",
		zap.String("variable", req.Variable),
		zap.Int("diagnostics", len(c.Diagnostics)))

	return c, nil
}
