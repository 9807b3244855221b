package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/metadata"
	"github.com/rlch/pdchain/preview"
	"github.com/rlch/pdchain/server"
)

// ErrNoMetadata is returned by commands that need a metadata source when none is configured.
var ErrNoMetadata = errors.New("no metadata source (use --metadata, --sqlite or .pdchain.yaml)")

func (a *app) requireSource(ctx context.Context, cmd *cli.Command) (metadata.Source, error) {
	src, err := a.openSource(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if src == nil {
		return nil, ErrNoMetadata
	}

	return src, nil
}

func (a *app) previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Apply a selection to sample rows",
		ArgsUsage: "<selection>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "sample rows to load before filtering",
				Value:   server.DefaultPreviewLimit,
			},
		},
		Action: a.runPreview,
	}
}

func (a *app) runPreview(ctx context.Context, cmd *cli.Command) error {
	src, err := a.requireSource(ctx, cmd)
	if err != nil {
		return err
	}

	reqs, err := a.requestsFromCommand(cmd)
	if err != nil {
		return err
	}

	for _, req := range reqs {
		rows, cols, err := preview.Run(ctx, src, req, cmd.Int("limit"))
		if err != nil {
			return fmt.Errorf("preview %s: %w", req.Variable, err)
		}

		if a.jsonOutput(cmd) {
			if err := writeJSON(a.stdout, server.PreviewResult{Columns: cols, Rows: rows}); err != nil {
				return err
			}

			continue
		}

		fmt.Fprintln(a.stdout, req.Code(a.builder()))

		t := newTable(cols...)
		for _, row := range rows {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = fmt.Sprint(row[c])
			}

			t.Row(cells...)
		}

		fmt.Fprintln(a.stdout, t.Render())
	}

	return nil
}

func (a *app) columnsCommand() *cli.Command {
	return &cli.Command{
		Name:      "columns",
		Usage:     "List variables, or the columns of one variable",
		ArgsUsage: "[variable [column]]",
		Action:    a.runColumns,
	}
}

// runColumns lists variables, a variable's columns, or a column's unique
// values depending on how many arguments are given.
func (a *app) runColumns(ctx context.Context, cmd *cli.Command) error {
	src, err := a.requireSource(ctx, cmd)
	if err != nil {
		return err
	}

	args := cmd.Args()

	switch args.Len() {
	case 0:
		names, err := src.Variables(ctx)
		if err != nil {
			return err
		}

		if a.jsonOutput(cmd) {
			return writeJSON(a.stdout, names)
		}

		for _, n := range names {
			fmt.Fprintln(a.stdout, n)
		}
	case 1:
		v, err := src.Variable(ctx, args.First())
		if err != nil {
			return err
		}

		if a.jsonOutput(cmd) {
			return writeJSON(a.stdout, v)
		}

		t := newTable("COLUMN", "DTYPE")
		for _, c := range v.Columns {
			t.Row(c.Name, c.Dtype)
		}

		fmt.Fprintf(a.stdout, "%s (%s)\n%s\n", v.Name, v.Type, t.Render())
	default:
		lits, err := src.Uniques(ctx, args.Get(0), args.Get(1))
		if err != nil {
			return err
		}

		return printLiterals(a.stdout, lits, a.jsonOutput(cmd))
	}

	return nil
}

func (a *app) introspectCommand() *cli.Command {
	parse := func() []cli.Flag {
		return []cli.Flag{&cli.BoolFlag{
			Name:  "parse",
			Usage: "read the script's output from stdin and decode it",
		}}
	}

	return &cli.Command{
		Name:  "introspect",
		Usage: "Print the kernel scripts that gather metadata, or decode their output",
		Commands: []*cli.Command{
			{
				Name:      "dir",
				Usage:     "members of an expression, or the namespace",
				ArgsUsage: "[expression]",
				Flags:     parse(),
				Action: func(_ context.Context, cmd *cli.Command) error {
					if !cmd.Bool("parse") {
						fmt.Fprint(a.stdout, metadata.DirScript(cmd.Args().First()))
						return nil
					}

					return a.decodeStdin(func(out []byte) (any, error) { return metadata.ParseDir(out) })
				},
			},
			{
				Name:      "columns",
				Usage:     "columns and dtypes of a DataFrame",
				ArgsUsage: "<variable>",
				Flags:     parse(),
				Action: func(_ context.Context, cmd *cli.Command) error {
					if !cmd.Bool("parse") {
						fmt.Fprint(a.stdout, metadata.ColumnsScript(cmd.Args().First()))
						return nil
					}

					return a.decodeStdin(func(out []byte) (any, error) { return metadata.ParseColumns(out) })
				},
			},
			{
				Name:      "uniques",
				Usage:     "unique values of a column",
				ArgsUsage: "<variable> <column>",
				Flags:     parse(),
				Action: func(_ context.Context, cmd *cli.Command) error {
					if !cmd.Bool("parse") {
						fmt.Fprint(a.stdout, metadata.UniquesScript(cmd.Args().Get(0), cmd.Args().Get(1)))
						return nil
					}

					out, err := io.ReadAll(a.stdin)
					if err != nil {
						return err
					}

					lits, err := metadata.ParseUniques(out)
					if err != nil {
						return err
					}

					return printLiterals(a.stdout, lits, false)
				},
			},
		},
	}
}

func (a *app) decodeStdin(decode func([]byte) (any, error)) error {
	out, err := io.ReadAll(a.stdin)
	if err != nil {
		return err
	}

	v, err := decode(out)
	if err != nil {
		return err
	}

	return writeJSON(a.stdout, v)
}

func (a *app) jsonOutput(cmd *cli.Command) bool {
	return firstNonEmpty(cmd.String("format"), a.cfg.Output) == "json"
}

// printLiterals prints values as they would appear in generated code.
func printLiterals(w io.Writer, lits []pdchain.Literal, asJSON bool) error {
	quoted := make([]string, len(lits))
	for i, l := range lits {
		quoted[i] = l.Quote()
	}

	if asJSON {
		return writeJSON(w, quoted)
	}

	for _, q := range quoted {
		fmt.Fprintln(w, q)
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}
