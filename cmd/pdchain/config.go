package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/analysis"
	"github.com/rlch/pdchain/metadata"
	"github.com/rlch/pdchain/pyparse"
	"github.com/rlch/pdchain/runner"
)

// ErrTwoSources is returned when both a metadata file and a SQLite database are configured.
var ErrTwoSources = errors.New("both a metadata file and a sqlite database are configured")

// app holds state shared by every command for one invocation.
type app struct {
	logger *zap.Logger
	cfg    *pdchain.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	source metadata.Source
	closer io.Closer
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return ctx, err
	}

	a.logger = logger

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	a.cfg = cfg

	return ctx, nil
}

func (a *app) after(_ context.Context, _ *cli.Command) error {
	if a.closer != nil {
		_ = a.closer.Close()
	}

	_ = a.logger.Sync()

	return nil
}

// loadConfig reads the config named by path, or the nearest one walking up
// from the working directory. A missing implicit config yields an empty one.
func loadConfig(path string) (*pdchain.Config, error) {
	if path != "" {
		cfg, err := pdchain.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}

		return cfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}

	cfg, err := pdchain.LoadConfig(cwd)
	if errors.Is(err, pdchain.ErrConfigNotFound) {
		return &pdchain.Config{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// openSource opens the metadata source named by flags or config. It returns
// nil when none is configured; commands that can run without metadata do.
func (a *app) openSource(ctx context.Context, cmd *cli.Command) (metadata.Source, error) {
	if a.source != nil {
		return a.source, nil
	}

	file := firstNonEmpty(cmd.String("metadata"), a.cfg.Metadata.File)
	db := firstNonEmpty(cmd.String("sqlite"), a.cfg.Metadata.SQLite)

	switch {
	case file != "" && db != "":
		return nil, ErrTwoSources
	case file != "":
		src, err := metadata.LoadFile(file)
		if err != nil {
			return nil, fmt.Errorf("loading metadata: %w", err)
		}

		a.source = src
	case db != "":
		src, err := metadata.OpenSQLite(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}

		a.source, a.closer = src, src
	default:
		return nil, nil
	}

	a.logger.Debug("metadata source opened", zap.String("file", file), zap.String("sqlite", db))

	return a.source, nil
}

func (a *app) builder() *pdchain.Builder {
	opts := append(a.cfg.BuilderOptions(), pdchain.WithLogger(a.logger))

	return pdchain.NewBuilder(opts...)
}

// analyzer builds an analyzer over the configured source. syntax adds the
// tree-sitter Python check.
func (a *app) analyzer(ctx context.Context, cmd *cli.Command, syntax bool) (*analysis.Analyzer, error) {
	src, err := a.openSource(ctx, cmd)
	if err != nil {
		return nil, err
	}

	opts := []analysis.Option{
		analysis.WithBuilder(a.builder()),
		analysis.WithLogger(a.logger),
	}

	if src != nil {
		opts = append(opts, analysis.WithSource(src))
	}

	if syntax {
		opts = append(opts, analysis.WithSyntaxChecker(pyparse.Check))
	}

	return analysis.NewAnalyzer(opts...), nil
}

// formatter resolves the output format: flag, then config, then fallback.
func (a *app) formatter(cmd *cli.Command, fallback string) (runner.Formatter, error) {
	name := firstNonEmpty(cmd.String("format"), a.cfg.Output, fallback)

	return runner.NewFormatter(name, a.stdout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
