// Package server exposes chain building, checking and metadata lookup over
// JSON-RPC and HTTP.
package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/analysis"
	"github.com/rlch/pdchain/catalog"
	"github.com/rlch/pdchain/metadata"
	"github.com/rlch/pdchain/preview"
)

// Sentinel errors.
var (
	// ErrInvalidParams is wrapped by errors caused by malformed input.
	ErrInvalidParams = errors.New("server: invalid params")

	// ErrNoSource is returned by metadata operations when no source is configured.
	ErrNoSource = errors.New("server: no metadata source configured")

	// ErrUnknownType is returned for catalog lookups of unknown return types.
	ErrUnknownType = errors.New("server: unknown return type")
)

// DefaultPreviewLimit is the number of sample rows read when none is given.
const DefaultPreviewLimit = 50

// ChainParams identifies a request either as DSL text or as a request object.
type ChainParams struct {
	// Source is selection DSL text. When set, the request fields are ignored.
	Source string `json:"source,omitempty"`

	pdchain.Request

	// Encoded is column metadata in EncodeColumnMeta form. When set it
	// replaces Columns.
	Encoded string `json:"encoded,omitempty"`
}

// ChainResult describes a built chain.
type ChainResult struct {
	Code             string               `json:"code"`
	Chain            *pdchain.Chain       `json:"chain"`
	Columns          []pdchain.ColumnMeta `json:"columns"`
	Encoded          string               `json:"encoded"`
	ReturnType       pdchain.ReturnType   `json:"returnType,omitempty"`
	ReturnTypeLocked bool                 `json:"returnTypeLocked"`
	// Selection is the request printed back as DSL text.
	Selection string `json:"selection"`
}

// CheckResult is a ChainResult with diagnostics.
type CheckResult struct {
	ChainResult

	Ok          bool                  `json:"ok"`
	Diagnostics []analysis.Diagnostic `json:"diagnostics"`
}

// ParseParams holds DSL text.
type ParseParams struct {
	Source string `json:"source"`
}

// CatalogParams selects catalog entries.
type CatalogParams struct {
	Type   pdchain.ReturnType `json:"type"`
	Prefix string             `json:"prefix,omitempty"`
}

// VariableParams names a variable and optionally one of its columns.
type VariableParams struct {
	Variable string `json:"variable"`
	Column   string `json:"column,omitempty"`
}

// PreviewParams selects sample rows through a chain's conditions.
type PreviewParams struct {
	ChainParams

	Limit int `json:"limit,omitempty"`
}

// PreviewResult holds filtered sample rows.
type PreviewResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Service implements every operation independent of transport.
type Service struct {
	builder  *pdchain.Builder
	analyzer *analysis.Analyzer
	source   metadata.Source
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBuilder sets the chain builder.
func WithBuilder(b *pdchain.Builder) Option { return func(s *Service) { s.builder = b } }

// WithAnalyzer sets the analyzer used by Check.
func WithAnalyzer(a *analysis.Analyzer) Option { return func(s *Service) { s.analyzer = a } }

// WithSource sets the metadata source.
func WithSource(src metadata.Source) Option { return func(s *Service) { s.source = src } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates a Service. Without an analyzer, one is made from the
// builder and source.
func NewService(opts ...Option) *Service {
	s := &Service{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if s.builder == nil {
		s.builder = pdchain.NewBuilder()
	}

	if s.analyzer == nil {
		aopts := []analysis.Option{analysis.WithBuilder(s.builder), analysis.WithLogger(s.logger)}
		if s.source != nil {
			aopts = append(aopts, analysis.WithSource(s.source))
		}

		s.analyzer = analysis.NewAnalyzer(aopts...)
	}

	return s
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidParams, err)
}

// request resolves params into a request.
func (s *Service) request(p *ChainParams) (*pdchain.Request, error) {
	if p.Source != "" {
		sel, err := pdchain.Parse(p.Source)
		if err != nil {
			return nil, invalid(err)
		}

		return sel.Request(), nil
	}

	req := p.Request
	if p.Encoded != "" {
		cols, err := pdchain.DecodeColumnMeta(p.Encoded)
		if err != nil {
			return nil, invalid(err)
		}

		req.Columns = cols
	}

	return &req, nil
}

func (s *Service) describe(req *pdchain.Request, res *pdchain.Result) (ChainResult, error) {
	meta := res.Meta()

	enc, err := pdchain.EncodeColumnMeta(meta)
	if err != nil {
		return ChainResult{}, err
	}

	var code string
	if rendered := res.Render(); rendered != "" {
		code = pdchain.CodeLine(req.Target, rendered)
	}

	return ChainResult{
		Code:             code,
		Chain:            res.Chain,
		Columns:          meta,
		Encoded:          enc,
		ReturnType:       res.ReturnType,
		ReturnTypeLocked: res.ReturnTypeLocked,
		Selection:        pdchain.Format(req),
	}, nil
}

// Build builds a chain.
func (s *Service) Build(_ context.Context, p *ChainParams) (*ChainResult, error) {
	req, err := s.request(p)
	if err != nil {
		return nil, err
	}

	out, err := s.describe(req, req.Build(s.builder))
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Render builds a chain and returns only its code line.
func (s *Service) Render(ctx context.Context, p *ChainParams) (string, error) {
	res, err := s.Build(ctx, p)
	if err != nil {
		return "", err
	}

	return res.Code, nil
}

// Parse parses DSL text into a request.
func (s *Service) Parse(_ context.Context, p *ParseParams) (*pdchain.Request, error) {
	sel, err := pdchain.Parse(p.Source)
	if err != nil {
		return nil, invalid(err)
	}

	return sel.Request(), nil
}

// Check builds a chain and runs the analyzer over it.
func (s *Service) Check(ctx context.Context, p *ChainParams) (*CheckResult, error) {
	req, err := s.request(p)
	if err != nil {
		return nil, err
	}

	checked, err := s.analyzer.Check(ctx, req)
	if err != nil {
		return nil, err
	}

	out, err := s.describe(req, checked.Result)
	if err != nil {
		return nil, err
	}

	return &CheckResult{
		ChainResult: out,
		Ok:          !checked.HasErrors(),
		Diagnostics: checked.Diagnostics,
	}, nil
}

// Catalog lists api entries for a return type.
func (s *Service) Catalog(_ context.Context, p *CatalogParams) ([]catalog.Entry, error) {
	if len(catalog.For(p.Type)) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, p.Type)
	}

	entries := catalog.Search(p.Type, p.Prefix)
	if entries == nil {
		entries = []catalog.Entry{}
	}

	return entries, nil
}

// Variables lists variables in the metadata source.
func (s *Service) Variables(ctx context.Context) ([]string, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}

	return s.source.Variables(ctx)
}

// Variable describes one variable.
func (s *Service) Variable(ctx context.Context, p *VariableParams) (*metadata.Variable, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}

	return s.source.Variable(ctx, p.Variable)
}

// Uniques lists the distinct values of a column as Python literals.
func (s *Service) Uniques(ctx context.Context, p *VariableParams) ([]string, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}

	lits, err := s.source.Uniques(ctx, p.Variable, p.Column)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(lits))
	for i, l := range lits {
		out[i] = l.Quote()
	}

	return out, nil
}

// Preview filters sample rows through a chain's conditions and selections.
func (s *Service) Preview(ctx context.Context, p *PreviewParams) (*PreviewResult, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}

	req, err := s.request(&p.ChainParams)
	if err != nil {
		return nil, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	rows, cols, err := preview.Run(ctx, s.source, req, limit)
	if errors.Is(err, preview.ErrIncomplete) {
		return nil, invalid(err)
	}

	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []map[string]any{}
	}

	return &PreviewResult{Columns: cols, Rows: rows}, nil
}
