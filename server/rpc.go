package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/rlch/pdchain/metadata"
)

// JSON-RPC method names.
const (
	MethodBuild     = "chain/build"
	MethodRender    = "chain/render"
	MethodParse     = "chain/parse"
	MethodCheck     = "chain/check"
	MethodPreview   = "chain/preview"
	MethodCatalog   = "catalog/list"
	MethodVariables = "metadata/variables"
	MethodVariable  = "metadata/variable"
	MethodUniques   = "metadata/uniques"
)

// Handler returns a JSON-RPC handler dispatching to s.
func (s *Service) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("rpc request", zap.String("method", req.Method()))

		result, err := s.dispatch(ctx, req)
		if errors.Is(err, errMethodNotFound) {
			return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, fmt.Sprintf("%q: method not found", req.Method())))
		}

		if err != nil {
			s.logger.Debug("rpc error", zap.String("method", req.Method()), zap.Error(err))
			return reply(ctx, nil, rpcError(err))
		}

		return reply(ctx, result, nil)
	}
}

var errMethodNotFound = errors.New("method not found")

func (s *Service) dispatch(ctx context.Context, req jsonrpc2.Request) (any, error) {
	switch req.Method() {
	case MethodBuild:
		return call(ctx, req, s.Build)
	case MethodRender:
		return call(ctx, req, s.Render)
	case MethodParse:
		return call(ctx, req, s.Parse)
	case MethodCheck:
		return call(ctx, req, s.Check)
	case MethodPreview:
		return call(ctx, req, s.Preview)
	case MethodCatalog:
		return call(ctx, req, s.Catalog)
	case MethodVariables:
		return s.Variables(ctx)
	case MethodVariable:
		return call(ctx, req, s.Variable)
	case MethodUniques:
		return call(ctx, req, s.Uniques)
	default:
		return nil, errMethodNotFound
	}
}

// call decodes the params into a fresh P and invokes fn.
func call[P, R any](ctx context.Context, req jsonrpc2.Request, fn func(context.Context, *P) (R, error)) (any, error) {
	var p P

	if raw := req.Params(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, invalid(err)
		}
	}

	return fn(ctx, &p)
}

func rpcError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidParams), errors.Is(err, ErrUnknownType):
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	case errors.Is(err, metadata.ErrUnknownVariable), errors.Is(err, metadata.ErrUnknownColumn):
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	default:
		return jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
	}
}

// ServeStream serves JSON-RPC on rwc until the connection closes or ctx
// is cancelled.
func (s *Service) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	conn.Go(ctx, s.Handler())

	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.Done()

		return ctx.Err()
	case <-conn.Done():
	}

	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("jsonrpc connection: %w", err)
	}

	return nil
}

// ReadWriteCloser joins a separate reader and writer, as with stdin and stdout.
type ReadWriteCloser struct {
	io.Reader
	io.Writer
}

// Close closes the writer if it is closeable.
func (rwc *ReadWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
