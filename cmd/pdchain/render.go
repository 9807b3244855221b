package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/runner"
)

// ErrNoSelection is returned when build has neither a DSL argument nor --variable.
var ErrNoSelection = errors.New("no selection given (pass a DSL argument, '-' for YAML on stdin, or --variable)")

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "stop on first request with errors",
		},
		&cli.StringFlag{
			Name:  "run",
			Usage: "render only requests whose file/name matches pattern",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "files checked in parallel (default: GOMAXPROCS)",
		},
	}
}

func (a *app) renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render request files to Python",
		ArgsUsage: "[files or directories...]",
		Flags:     runFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.runFiles(ctx, cmd, "plain", false)
		},
	}
}

func (a *app) checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check request files against metadata and Python syntax",
		ArgsUsage: "[files or directories...]",
		Flags:     runFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.runFiles(ctx, cmd, "verbose", true)
		},
	}
}

func (a *app) runFiles(ctx context.Context, cmd *cli.Command, format string, syntax bool) error {
	files, err := collectRequestFiles(cmd.Args().Slice())
	if err != nil {
		return err
	}

	f, err := a.formatter(cmd, format)
	if err != nil {
		return err
	}

	return exitStatus(a.runBatches(ctx, cmd, runner.LoadFiles(files), f, syntax))
}

// runBatches runs batches through the runner and prints the summary.
func (a *app) runBatches(ctx context.Context, cmd *cli.Command, batches []runner.Batch, f runner.Formatter, syntax bool) (*runner.Result, error) {
	an, err := a.analyzer(ctx, cmd, syntax)
	if err != nil {
		return nil, err
	}

	filter, err := runFilter(cmd.String("run"))
	if err != nil {
		return nil, err
	}

	handler := runner.NewFormatHandler(f, a.stderr)

	r := runner.New(
		runner.WithAnalyzer(an),
		runner.WithHandler(handler),
		runner.WithFailFast(cmd.Bool("fail-fast")),
		runner.WithFilter(filter),
		runner.WithConcurrency(cmd.Int("jobs")),
		runner.WithLogger(a.logger),
	)

	result, err := r.Run(ctx, batches)
	if err != nil {
		return nil, err
	}

	return result, handler.Summary(result)
}

// runFilter compiles the --run pattern. An empty pattern runs everything.
func runFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid --run pattern: %w", err)
	}

	return re, nil
}

// exitStatus exits non-zero when any request had errors.
func exitStatus(result *runner.Result, err error) error {
	if err != nil {
		return err
	}

	if !result.Ok() {
		return cli.Exit("", 1)
	}

	return nil
}

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "variable",
			Usage: "variable to select from",
		},
		&cli.StringFlag{
			Name:  "columns",
			Usage: "encoded column rows, as produced by the JSON output",
		},
		&cli.StringFlag{
			Name:  "returns",
			Usage: "return type hint (DataFrame or Series)",
		},
		&cli.StringFlag{
			Name:  "api",
			Usage: "trailing method call or attribute",
		},
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"o"},
			Usage:   "assign the result to this name",
		},
	}
}

func (a *app) buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Build one chain from a selection",
		ArgsUsage: "[selection | -]",
		Flags:     selectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.buildOne(ctx, cmd, "")
		},
	}
}

func (a *app) explainCommand() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "Show the block chain behind a selection",
		ArgsUsage: "[selection | -]",
		Flags:     selectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.buildOne(ctx, cmd, "explain")
		},
	}
}

// buildOne runs the requests named on the command line as one batch.
// A non-empty format overrides --format.
func (a *app) buildOne(ctx context.Context, cmd *cli.Command, format string) error {
	reqs, err := a.requestsFromCommand(cmd)
	if err != nil {
		return err
	}

	var f runner.Formatter
	if format != "" {
		f, err = runner.NewFormatter(format, a.stdout)
	} else {
		f, err = a.formatter(cmd, "plain")
	}

	if err != nil {
		return err
	}

	return exitStatus(a.runBatches(ctx, cmd, []runner.Batch{{Requests: reqs}}, f, true))
}

func (a *app) requestsFromCommand(cmd *cli.Command) ([]*pdchain.Request, error) {
	arg := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))

	switch {
	case arg == "-":
		return pdchain.DecodeRequests(a.stdin)
	case arg != "":
		sel, err := pdchain.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("parsing selection: %w", err)
		}

		req := sel.Request()
		if t := cmd.String("target"); t != "" {
			req.Target = t
		}

		return []*pdchain.Request{req}, nil
	}

	req := &pdchain.Request{
		Variable:   cmd.String("variable"),
		ReturnType: pdchain.ReturnType(cmd.String("returns")),
		Api:        cmd.String("api"),
		Target:     cmd.String("target"),
	}

	if req.Variable == "" {
		return nil, ErrNoSelection
	}

	cols, err := pdchain.DecodeColumnMeta(cmd.String("columns"))
	if err != nil {
		return nil, err
	}

	req.Columns = cols

	return []*pdchain.Request{req}, nil
}
