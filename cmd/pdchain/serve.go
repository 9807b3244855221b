package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/pdchain/runner"
	"github.com/rlch/pdchain/server"
	"github.com/rlch/pdchain/tui"
	"github.com/rlch/pdchain/watch"
)

func (a *app) watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-render request files when they change",
		ArgsUsage: "[files or directories...]",
		Flags: append(runFlags(), &cli.DurationFlag{
			Name:  "debounce",
			Usage: "quiet period before a changed file is rendered",
		}),
		Action: a.runWatch,
	}
}

func (a *app) runWatch(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	f, err := a.formatter(cmd, "plain")
	if err != nil {
		return err
	}

	// Callbacks for different files may overlap; keep their output whole.
	var mu sync.Mutex

	render := func(ctx context.Context, files ...string) error {
		mu.Lock()
		defer mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := a.runBatches(ctx, cmd, runner.LoadFiles(files), f, false)

		return err
	}

	files, err := collectRequestFiles(args)
	if err == nil {
		if err := render(ctx, files...); err != nil {
			a.logger.Warn("initial render failed", zap.Error(err))
		}
	}

	debounce := cmd.Duration("debounce")
	if debounce == 0 {
		debounce = a.cfg.Watch.Debounce
	}

	w, err := watch.New(func(ctx context.Context, path string) error {
		return render(ctx, path)
	}, watch.WithDebounce(debounce), watch.WithLogger(a.logger))
	if err != nil {
		return err
	}

	if err := w.Add(args...); err != nil {
		return err
	}

	fmt.Fprintf(a.stderr, "watching %s\n", strings.Join(args, ", "))

	return w.Run(ctx)
}

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chain API over HTTP, or JSON-RPC on stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "HTTP listen address (overrides config)",
				Sources: cli.EnvVars("PDCHAIN_ADDR"),
			},
			&cli.BoolFlag{
				Name:  "stdio",
				Usage: "serve JSON-RPC on stdin/stdout even if an address is configured",
			},
		},
		Action: a.runServe,
	}
}

func (a *app) runServe(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := a.openSource(ctx, cmd)
	if err != nil {
		return err
	}

	an, err := a.analyzer(ctx, cmd, true)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithBuilder(a.builder()),
		server.WithAnalyzer(an),
		server.WithLogger(a.logger),
	}
	if src != nil {
		opts = append(opts, server.WithSource(src))
	}

	svc := server.NewService(opts...)

	addr := firstNonEmpty(cmd.String("addr"), a.cfg.Serve.Addr)
	if addr == "" || cmd.Bool("stdio") {
		a.logger.Info("serving JSON-RPC on stdio")

		return svc.ServeStream(ctx, &server.ReadWriteCloser{Reader: a.stdin, Writer: a.stdout})
	}

	return svc.ListenAndServe(ctx, addr)
}

func (a *app) tuiCommand() *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Usage:     "Build a selection interactively and print its code",
		ArgsUsage: "[initial selection]",
		Action:    a.runTUI,
	}
}

func (a *app) runTUI(ctx context.Context, cmd *cli.Command) error {
	src, err := a.openSource(ctx, cmd)
	if err != nil {
		return err
	}

	an, err := a.analyzer(ctx, cmd, true)
	if err != nil {
		return err
	}

	// The interface draws on stderr so stdout carries only the accepted code.
	code, err := tui.Run(ctx, tui.Options{
		Analyzer: an,
		Source:   src,
		Initial:  strings.Join(cmd.Args().Slice(), " "),
		Output:   a.stderr,
	})
	if err != nil {
		return err
	}

	if code == "" {
		return cli.Exit("", 1)
	}

	fmt.Fprintln(a.stdout, code)

	return nil
}
