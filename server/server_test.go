package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/catalog"
	"github.com/rlch/pdchain/metadata"
	"github.com/rlch/pdchain/server"
)

const peopleYAML = `
variables:
  people:
    columns:
      - {name: name, dtype: object}
      - {name: age, dtype: int64}
      - {name: city, dtype: object}
    rows:
      - {name: Kim, age: 31, city: Seoul}
      - {name: Lee, age: 17, city: Busan}
      - {name: Park, age: 70, city: Seoul}
`

func newService(t *testing.T) *server.Service {
	t.Helper()

	src, err := metadata.ParseFile([]byte(peopleYAML))
	require.NoError(t, err)

	return server.NewService(server.WithSource(src))
}

func TestService_Build(t *testing.T) {
	t.Parallel()

	s := newService(t)

	res, err := s.Build(context.Background(), &server.ChainParams{Source: "people[age > 18, name] : Series -> names"})
	require.NoError(t, err)

	assert.Equal(t, "names = people[people['age'] > 18]['name']", res.Code)
	assert.Equal(t, pdchain.Series, res.ReturnType)
	assert.False(t, res.ReturnTypeLocked)
	assert.Equal(t, "people[age > 18, name] : Series -> names", res.Selection)

	again, err := s.Build(context.Background(), &server.ChainParams{
		Request: pdchain.Request{Variable: "people", ReturnType: pdchain.Series},
		Encoded: res.Encoded,
	})
	require.NoError(t, err)
	assert.Equal(t, "people[people['age'] > 18]['name']", again.Code, "encoded metadata restores the columns")

	_, err = s.Build(context.Background(), &server.ChainParams{Source: "people[age >"})
	require.ErrorIs(t, err, server.ErrInvalidParams)

	_, err = s.Build(context.Background(), &server.ChainParams{Encoded: "%zz"})
	require.ErrorIs(t, err, server.ErrInvalidParams)
}

func TestService_Check(t *testing.T) {
	t.Parallel()

	res, err := newService(t).Check(context.Background(), &server.ChainParams{Source: "people[height]"})
	require.NoError(t, err)

	assert.False(t, res.Ok)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "unknown-column", res.Diagnostics[0].Rule)
}

func TestService_Catalog(t *testing.T) {
	t.Parallel()

	s := newService(t)

	entries, err := s.Catalog(context.Background(), &server.CatalogParams{Type: pdchain.Series, Prefix: "value"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Entry{
		{Name: "pandas.Series.values", Code: "values"},
		{Name: "pandas.Series.value_counts", Code: "value_counts()"},
	}, entries)

	entries, err = s.Catalog(context.Background(), &server.CatalogParams{Type: pdchain.Series, Prefix: "value_"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Entry{{Name: "pandas.Series.value_counts", Code: "value_counts()"}}, entries)

	_, err = s.Catalog(context.Background(), &server.CatalogParams{Type: "Index"})
	require.ErrorIs(t, err, server.ErrUnknownType)
}

func TestService_NoSource(t *testing.T) {
	t.Parallel()

	s := server.NewService()

	_, err := s.Variables(context.Background())
	require.ErrorIs(t, err, server.ErrNoSource)

	_, err = s.Preview(context.Background(), &server.PreviewParams{})
	require.ErrorIs(t, err, server.ErrNoSource)
}

func TestService_Preview(t *testing.T) {
	t.Parallel()

	res, err := newService(t).Preview(context.Background(), &server.PreviewParams{
		ChainParams: server.ChainParams{Source: "people[city == Seoul, name]"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Equal(t, []map[string]any{{"name": "Kim"}, {"name": "Park"}}, res.Rows)

	_, err = newService(t).Preview(context.Background(), &server.PreviewParams{
		ChainParams: server.ChainParams{Request: pdchain.Request{
			Variable: "people",
			Columns:  []pdchain.ColumnMeta{{Column: "age", Operator: ">"}},
		}},
	})
	require.ErrorIs(t, err, server.ErrInvalidParams)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestRouter(t *testing.T) {
	t.Parallel()

	h := newService(t).Router()

	rec := do(t, h, http.MethodPost, "/chain", `{"source": "people[age > 18]"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var built server.ChainResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &built))
	assert.Equal(t, "people[people['age'] > 18]", built.Code)
	assert.Equal(t, 7, built.Chain.Len())

	rec = do(t, h, http.MethodPost, "/chain", `{"variable": "people", "columns": [{"column": "age"}], "returns": "Series", "api": "sum()"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &built))
	assert.Equal(t, "people['age'].sum()", built.Code)

	rec = do(t, h, http.MethodPost, "/render", `{"source": "people.head() -> top"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "top = people.head()\n", rec.Body.String())

	rec = do(t, h, http.MethodPost, "/check", `{"source": "people[age > old]"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rule":"type-mismatch"`)
	assert.Contains(t, rec.Body.String(), `"severity":"warning"`)

	rec = do(t, h, http.MethodPost, "/chain", `{"source": "people[age >"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_PARAMS")

	rec = do(t, h, http.MethodPost, "/chain", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/catalog/DataFrame?prefix=drop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "drop_duplicates()")

	rec = do(t, h, http.MethodGet, "/catalog/Index", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/variables/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["people"]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/variables/people", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dtype":"int64"`)

	rec = do(t, h, http.MethodGet, "/variables/ghosts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/variables/people/uniques/city", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["'Seoul'", "'Busan'"]`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/preview", `{"source": "people[age < 18]"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Lee"`)
	assert.NotContains(t, rec.Body.String(), `"Kim"`)
}

func rpcClient(t *testing.T, s *server.Service) jsonrpc2.Conn {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverSide, clientSide := net.Pipe()

	done := make(chan error, 1)
	go func() { done <- s.ServeStream(ctx, serverSide) }()

	client := jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide))
	client.Go(ctx, jsonrpc2.MethodNotFoundHandler)

	t.Cleanup(func() {
		_ = client.Close()
		<-client.Done()
		cancel()
		<-done
	})

	return client
}

func TestServeStream(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := rpcClient(t, newService(t))

	var built server.ChainResult
	_, err := client.Call(ctx, server.MethodBuild, map[string]any{"source": "people[age > 18 &, age < 65]"}, &built)
	require.NoError(t, err)
	assert.Equal(t, "people[people['age'] > 18 & people['age'] < 65]", built.Code)

	var code string
	_, err = client.Call(ctx, server.MethodRender, map[string]any{"variable": "people", "api": ".shape"}, &code)
	require.NoError(t, err)
	assert.Equal(t, "people.shape", code)

	var req pdchain.Request
	_, err = client.Call(ctx, server.MethodParse, server.ParseParams{Source: "df[a] -> b"}, &req)
	require.NoError(t, err)
	assert.Equal(t, "b", req.Target)

	var checked server.CheckResult
	_, err = client.Call(ctx, server.MethodCheck, map[string]any{"source": "ghosts"}, &checked)
	require.NoError(t, err)
	assert.False(t, checked.Ok)

	var entries []catalog.Entry
	_, err = client.Call(ctx, server.MethodCatalog, server.CatalogParams{Type: pdchain.DataFrame, Prefix: "head"}, &entries)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var names []string
	_, err = client.Call(ctx, server.MethodVariables, nil, &names)
	require.NoError(t, err)
	assert.Equal(t, []string{"people"}, names)

	_, err = client.Call(ctx, server.MethodBuild, map[string]any{"source": "people["}, nil)

	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, jsonrpc2.InvalidParams, rpcErr.Code)

	_, err = client.Call(ctx, "chain/unknown", nil, nil)
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, jsonrpc2.MethodNotFound, rpcErr.Code)
}

func TestReadWriteCloser(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	rwc := &server.ReadWriteCloser{Reader: strings.NewReader(""), Writer: w}
	require.NoError(t, rwc.Close())

	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}
