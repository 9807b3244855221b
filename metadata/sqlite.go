package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/rlch/pdchain"
)

// maxUniques caps the distinct values fetched for suggestions.
const maxUniques = 1000

// SQLiteSource treats every table of a SQLite database as a DataFrame
// variable.
type SQLiteSource struct {
	db *sql.DB
}

var _ Source = (*SQLiteSource)(nil)

// OpenSQLite opens a database file read-only.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &SQLiteSource{db: db}, nil
}

// NewSQLiteSource wraps an open database.
func NewSQLiteSource(db *sql.DB) *SQLiteSource {
	return &SQLiteSource{db: db}
}

// Close closes the database.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// Variables implements Source.
func (s *SQLiteSource) Variables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Variable implements Source.
func (s *SQLiteSource) Variable(ctx context.Context, name string) (*Variable, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	v := &Variable{Name: name, Type: string(pdchain.DataFrame)}

	for rows.Next() {
		var colName, colType string
		if err := rows.Scan(&colName, &colType); err != nil {
			return nil, err
		}

		v.Columns = append(v.Columns, Column{Name: colName, Dtype: sqliteDtype(colType)})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(v.Columns) == 0 {
		return nil, unknownVariable(name)
	}

	return v, nil
}

// Uniques implements Source.
func (s *SQLiteSource) Uniques(ctx context.Context, variable, column string) ([]pdchain.Literal, error) {
	v, err := s.Variable(ctx, variable)
	if err != nil {
		return nil, err
	}

	col, ok := v.Column(column)
	if !ok {
		return nil, unknownColumn(variable, column)
	}

	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY 1 LIMIT %d", quoteIdent(column), quoteIdent(variable), maxUniques)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pdchain.Literal

	for rows.Next() {
		var val any
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}

		out = append(out, literalFor(col, val))
	}

	return out, rows.Err()
}

// Rows implements Source.
func (s *SQLiteSource) Rows(ctx context.Context, variable string, limit int) ([]map[string]any, error) {
	v, err := s.Variable(ctx, variable)
	if err != nil {
		return nil, err
	}

	q := "SELECT * FROM " + quoteIdent(variable)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := v.ColumnNames()

	var out []map[string]any

	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))

		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(names))
		for i, n := range names {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}

			row[n] = vals[i]
		}

		out = append(out, row)
	}

	return out, rows.Err()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// sqliteDtype maps a declared column type to the dtype pandas would infer,
// following SQLite's type affinity rules.
func sqliteDtype(declared string) string {
	t := strings.ToUpper(declared)

	switch {
	case strings.Contains(t, "BOOL"):
		return "bool"
	case strings.Contains(t, "INT"):
		return "int64"
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return "object"
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return "float64"
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return "datetime64[ns]"
	default:
		return "object"
	}
}
