package pdchain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Request is everything needed to build and emit one chain.
type Request struct {
	// Name labels the request in multi-document files.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Variable   string       `json:"variable" yaml:"variable"`
	Columns    []ColumnMeta `json:"columns,omitempty" yaml:"columns,omitempty"`
	ReturnType ReturnType   `json:"returns,omitempty" yaml:"returns,omitempty"`
	Api        string       `json:"api,omitempty" yaml:"api,omitempty"`

	// Target is the variable the result is assigned to, if any.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Specs returns the typed column rows.
func (r *Request) Specs() []ColumnSpec { return SpecsFromMeta(r.Columns) }

// Build builds the request's chain. A nil builder uses defaults.
func (r *Request) Build(b *Builder) *Result {
	if b == nil {
		b = defaultBuilder
	}

	return b.Build(r.Variable, r.Specs(), r.ReturnType, r.Api)
}

// Code builds, renders and applies the assignment target.
// Empty requests yield "".
func (r *Request) Code(b *Builder) string {
	rendered := r.Build(b).Render()
	if rendered == "" {
		return ""
	}

	return CodeLine(r.Target, rendered)
}

// LoadRequestFile reads every YAML document in path as a Request.
func LoadRequestFile(path string) ([]*Request, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reqs, err := DecodeRequests(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return reqs, nil
}

// DecodeRequests decodes a stream of YAML request documents.
func DecodeRequests(r io.Reader) ([]*Request, error) {
	dec := yaml.NewDecoder(r)

	var reqs []*Request

	for {
		var req Request

		err := dec.Decode(&req)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		reqs = append(reqs, &req)
	}

	if len(reqs) == 0 {
		return nil, ErrNoRequests
	}

	return reqs, nil
}
