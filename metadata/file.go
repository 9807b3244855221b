package metadata

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rlch/pdchain"
)

// FileSource serves metadata from a YAML file of the form:
//
//	variables:
//	  df:
//	    type: DataFrame
//	    columns:
//	      - name: city
//	        dtype: object
//	        uniques: [Seoul, Busan]
//	    rows:
//	      - {city: Seoul, age: 31}
type FileSource struct {
	vars map[string]*fileVariable
}

type fileFormat struct {
	Variables map[string]*fileVariable `yaml:"variables"`
}

type fileVariable struct {
	Type    string           `yaml:"type"`
	Columns []fileColumn     `yaml:"columns"`
	Rows    []map[string]any `yaml:"rows"`
}

type fileColumn struct {
	Column  `yaml:",inline"`
	Uniques []any `yaml:"uniques,omitempty"`
}

var _ Source = (*FileSource)(nil)

// LoadFile reads a YAML metadata file.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return ParseFile(data)
}

// ParseFile parses YAML metadata.
func ParseFile(data []byte) (*FileSource, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if f.Variables == nil {
		f.Variables = map[string]*fileVariable{}
	}

	for _, v := range f.Variables {
		if v.Type == "" {
			v.Type = string(pdchain.DataFrame)
		}
	}

	return &FileSource{vars: f.Variables}, nil
}

// Variables implements Source.
func (s *FileSource) Variables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

// Variable implements Source.
func (s *FileSource) Variable(_ context.Context, name string) (*Variable, error) {
	fv, ok := s.vars[name]
	if !ok {
		return nil, unknownVariable(name)
	}

	v := &Variable{Name: name, Type: fv.Type}
	for _, c := range fv.Columns {
		v.Columns = append(v.Columns, c.Column)
	}

	return v, nil
}

// Uniques implements Source. Declared uniques win; otherwise distinct
// values are collected from the sample rows in first-seen order.
func (s *FileSource) Uniques(_ context.Context, variable, column string) ([]pdchain.Literal, error) {
	fv, ok := s.vars[variable]
	if !ok {
		return nil, unknownVariable(variable)
	}

	idx := slices.IndexFunc(fv.Columns, func(c fileColumn) bool { return c.Name == column })
	if idx < 0 {
		return nil, unknownColumn(variable, column)
	}

	col := fv.Columns[idx]

	values := col.Uniques
	if len(values) == 0 {
		for _, row := range fv.Rows {
			if v, ok := row[column]; ok {
				values = append(values, v)
			}
		}
	}

	seen := make(map[pdchain.Literal]bool, len(values))

	var out []pdchain.Literal

	for _, v := range values {
		lit := literalFor(col.Column, v)
		if seen[lit] {
			continue
		}

		seen[lit] = true
		out = append(out, lit)
	}

	return out, nil
}

// Rows implements Source.
func (s *FileSource) Rows(_ context.Context, variable string, limit int) ([]map[string]any, error) {
	fv, ok := s.vars[variable]
	if !ok {
		return nil, unknownVariable(variable)
	}

	rows := fv.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}
