// Command pdchain builds pandas selection chains from request files, a
// selection DSL, or an interactive prompt.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/pdchain/runner"
)

func main() {
	err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the root command. Generated code and JSON go to stdout;
// summaries, diagnostics and the TUI go to stderr.
func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	a := &app{logger: zap.NewNop(), stdin: stdin, stdout: stdout, stderr: stderr}

	return &cli.Command{
		Name:      "pdchain",
		Usage:     "Build pandas selection chains",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (default: nearest .pdchain.yaml)",
				Sources: cli.EnvVars("PDCHAIN_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "metadata",
				Aliases: []string{"m"},
				Usage:   "YAML metadata file describing variables (overrides config)",
				Sources: cli.EnvVars("PDCHAIN_METADATA"),
			},
			&cli.StringFlag{
				Name:    "sqlite",
				Usage:   "SQLite database whose tables are variables (overrides config)",
				Sources: cli.EnvVars("PDCHAIN_SQLITE"),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("output format %v", runner.Formats),
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			a.renderCommand(),
			a.checkCommand(),
			a.buildCommand(),
			a.explainCommand(),
			a.previewCommand(),
			a.columnsCommand(),
			a.introspectCommand(),
			a.watchCommand(),
			a.serveCommand(),
			a.tuiCommand(),
		},
	}
}

// newLogger logs to stderr; stdout carries generated code and JSON-RPC.
func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}
