package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/metadata"
)

// Router returns the HTTP API.
//
//	POST /chain                            build a chain
//	POST /render                           build and return the code line as text
//	POST /parse                            parse DSL text into a request
//	POST /check                            build and analyze a chain
//	POST /preview                          filter sample rows
//	GET  /catalog/{type}?prefix=           list api entries
//	GET  /variables                        list variables
//	GET  /variables/{name}                 describe a variable
//	GET  /variables/{name}/uniques/{column}  distinct column values
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Post("/chain", jsonHandler(s.Build))
	r.Post("/check", jsonHandler(s.Check))
	r.Post("/parse", jsonHandler(s.Parse))
	r.Post("/preview", jsonHandler(s.Preview))
	r.Post("/render", s.handleRender)

	r.Get("/catalog/{type}", func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.Catalog(r.Context(), &CatalogParams{
			Type:   pdchain.ReturnType(chi.URLParam(r, "type")),
			Prefix: r.URL.Query().Get("prefix"),
		})
		respond(w, entries, err)
	})

	r.Route("/variables", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			names, err := s.Variables(r.Context())
			respond(w, names, err)
		})
		r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
			v, err := s.Variable(r.Context(), &VariableParams{Variable: chi.URLParam(r, "name")})
			respond(w, v, err)
		})
		r.Get("/{name}/uniques/{column}", func(w http.ResponseWriter, r *http.Request) {
			vals, err := s.Uniques(r.Context(), &VariableParams{
				Variable: chi.URLParam(r, "name"),
				Column:   chi.URLParam(r, "column"),
			})
			respond(w, vals, err)
		})
	})

	return r
}

func (s *Service) handleRender(w http.ResponseWriter, r *http.Request) {
	var p ChainParams
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	code, err := s.Render(r.Context(), &p)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/x-python; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(code + "\n"))
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())))
	})
}

// jsonHandler decodes a JSON body into P and responds with fn's result.
func jsonHandler[P, R any](fn func(context.Context, *P) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p P
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
			return
		}

		res, err := fn(r.Context(), &p)
		respond(w, res, err)
	}
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidParams):
		writeError(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
	case errors.Is(err, ErrUnknownType),
		errors.Is(err, metadata.ErrUnknownVariable),
		errors.Is(err, metadata.ErrUnknownColumn):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrNoSource):
		writeError(w, http.StatusNotImplemented, "NO_SOURCE", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

// ListenAndServe serves the HTTP API on addr until ctx is cancelled.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}
