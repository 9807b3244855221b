package runner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/analysis"
)

// Batch is a group of requests from one source.
type Batch struct {
	File     string
	Requests []*pdchain.Request
	// Err is set when the source could not be loaded.
	Err error
}

// Runner builds and checks request batches.
type Runner struct {
	analyzer *analysis.Analyzer
	handler  Handler
	failFast bool
	filter   *regexp.Regexp
	jobs     int
	logger   *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithAnalyzer sets the analyzer used to build and check each request.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(r *Runner) {
		r.analyzer = a
	}
}

// WithHandler sets the event handler.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithFailFast stops on first failure.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) {
		r.failFast = enabled
	}
}

// WithFilter sets the pattern that filters which requests run.
// Requests whose "file/name" path matches are processed; the rest are
// reported as skipped. A nil pattern runs everything.
func WithFilter(re *regexp.Regexp) Option {
	return func(r *Runner) {
		r.filter = re
	}
}

// WithConcurrency sets how many batches are processed at once.
// Defaults to GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.jobs = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		jobs:   runtime.GOMAXPROCS(0),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// LoadFiles reads every path as a request file. Load failures are kept on
// the batch rather than returned.
func LoadFiles(paths []string) []Batch {
	batches := make([]Batch, len(paths))
	for i, p := range paths {
		reqs, err := pdchain.LoadRequestFile(p)
		batches[i] = Batch{File: p, Requests: reqs, Err: err}
	}

	return batches
}

// RunFiles loads and runs request files.
func (r *Runner) RunFiles(ctx context.Context, paths []string) (*Result, error) {
	return r.Run(ctx, LoadFiles(paths))
}

// Run checks every request concurrently, then delivers events to the
// handler in batch order so output is stable across runs.
func (r *Runner) Run(ctx context.Context, batches []Batch) (*Result, error) {
	if r.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	result := NewResult()

	handlers := []Handler{NewResultHandler()}
	if r.handler != nil {
		handlers = append(handlers, r.handler)
	}

	if r.failFast {
		handlers = append(handlers, NewStopOnFailHandler(1))
	}

	handler := NewMultiHandler(handlers...)

	events := make([][]Event, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	if r.jobs > 0 {
		g.SetLimit(r.jobs)
	}

	for i, b := range batches {
		g.Go(func() error {
			evs, err := r.runBatch(gctx, b)
			events[i] = evs

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, evs := range events {
		for _, ev := range evs {
			err := handler.Event(ctx, ev, result)
			if errors.Is(err, ErrMaxFailures) {
				result.Finish()
				return result, nil
			}

			if err != nil {
				return result, err
			}
		}
	}

	result.Finish()

	return result, nil
}

func (r *Runner) runBatch(ctx context.Context, b Batch) ([]Event, error) {
	if b.Err != nil {
		return []Event{{
			Time:   time.Now(),
			Action: ActionError,
			File:   b.File,
			Name:   "load",
			Error:  b.Err,
		}}, nil
	}

	evs := make([]Event, 0, 2*len(b.Requests))

	for i, req := range b.Requests {
		if err := ctx.Err(); err != nil {
			return evs, err
		}

		name := req.Name
		if name == "" {
			name = strconv.Itoa(i + 1)
		}

		base := Event{File: b.File, Name: name, Request: req}

		if !r.matchesFilter(base.PathString()) {
			base.Time = time.Now()
			base.Action = ActionSkip
			evs = append(evs, base)

			continue
		}

		start := time.Now()

		run := base
		run.Time = start
		run.Action = ActionRun
		evs = append(evs, run)

		evs = append(evs, r.runRequest(ctx, base, start))
	}

	return evs, nil
}

func (r *Runner) runRequest(ctx context.Context, ev Event, start time.Time) Event {
	checked, err := r.analyzer.Check(ctx, ev.Request)

	ev.Time = time.Now()
	ev.Elapsed = time.Since(start)

	if err != nil {
		ev.Action = ActionError
		ev.Error = fmt.Errorf("check %s: %w", ev.PathString(), err)

		return ev
	}

	ev.Result = checked.Result
	ev.Code = checked.Code
	ev.Diagnostics = checked.Diagnostics

	ev.Action = ActionPass
	if checked.HasErrors() {
		ev.Action = ActionFail
	}

	r.logger.Debug("request done",
		zap.String("path", ev.PathString()),
		zap.String("action", string(ev.Action)),
		zap.Duration("elapsed", ev.Elapsed))

	return ev
}

// matchesFilter returns true if the request path matches the filter pattern.
// If no filter is set, all requests match.
func (r *Runner) matchesFilter(path string) bool {
	if r.filter == nil {
		return true
	}

	return r.filter.MatchString(path)
}
