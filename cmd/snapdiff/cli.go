package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/ops"
	"github.com/hpungsan/snapdiff/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, log logrus.FieldLogger) *cli.App {
	app := &cli.App{
		Name:    "snapdiff",
		Usage:   "Snapshot diff engine for scraped record sets",
		Version: Version,
		Commands: []*cli.Command{
			diffCmd(cfg, log),
			batchCmd(cfg, log),
			indexCmd(db, cfg, log),
			searchCmd(db),
			summaryCmd(cfg),
			serveCmd(db, cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// diffCmd creates the diff command.
func diffCmd(cfg *config.Config, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Compare the old and new snapshot of one source and write its reports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Configured source name"},
			&cli.StringFlag{Name: "old", Usage: "Old snapshot path (defaults to the source's configured path)"},
			&cli.StringFlag{Name: "new", Usage: "New snapshot path (defaults to the source's configured path)"},
			&cli.StringFlag{Name: "fields", Usage: "Comma-separated comparison fields"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Report directory (defaults to report_dir)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Diff table format: csv|tsv|xlsx"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Compare only; write no files"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Diff(c.Context, cfg, log, ops.DiffInput{
				Source: c.String("source"),
				Old:    c.String("old"),
				New:    c.String("new"),
				Fields: parseList(c.String("fields")),
				OutDir: c.String("out"),
				Format: c.String("format"),
				DryRun: c.Bool("dry-run"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// batchCmd creates the batch command.
func batchCmd(cfg *config.Config, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Diff several sources concurrently (all configured sources by default)",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source to run (repeatable)"},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"c"}, Usage: "Maximum sources diffed at once"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Report directory (defaults to report_dir)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Diff table format: csv|tsv|xlsx"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Compare only; write no files"},
		},
		Action: func(c *cli.Context) error {
			if c.Int("concurrency") < 0 {
				return outputError(errors.NewInvalidRequest("concurrency must be positive"))
			}

			output, err := ops.Batch(c.Context, cfg, log, ops.BatchInput{
				Sources:     c.StringSlice("source"),
				Concurrency: c.Int("concurrency"),
				OutDir:      c.String("out"),
				Format:      c.String("format"),
				DryRun:      c.Bool("dry-run"),
			})
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(output); err != nil {
				return err
			}
			if output.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d sources failed", output.Failed, len(output.Items)), 1)
			}
			return nil
		},
	}
}

// indexCmd creates the index command.
func indexCmd(db *sql.DB, cfg *config.Config, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Load a source's latest snapshot into the search index",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Configured source name"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Snapshot path (defaults to the source's new snapshot)"},
			&cli.BoolFlag{Name: "drop", Usage: "Remove the source's index instead of loading it"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("drop") {
				source := c.String("source")
				if err := ops.DropIndex(c.Context, db, cfg, log, source); err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"source": source, "dropped": true})
			}

			output, err := ops.Index(c.Context, db, cfg, log, ops.IndexInput{
				Source: c.String("source"),
				Path:   c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Find indexed records whose title contains a keyword",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Configured source name"},
			&cli.StringFlag{Name: "q", Usage: "Title keyword (case-insensitive)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(c.Context, db, ops.SearchInput{
				Source: c.String("source"),
				Query:  c.String("q"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// summaryCmd creates the summary command.
func summaryCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Show the last summary written for a source",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Configured source name"},
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"md"}, Usage: "Print a markdown digest instead of JSON"},
			&cli.BoolFlag{Name: "table", Usage: "Include the latest diff table rows"},
		},
		Action: func(c *cli.Context) error {
			source := c.String("source")
			if _, ok := cfg.Source(source); !ok {
				return outputError(errors.NewUnknownSource(source))
			}

			markdown := c.Bool("markdown")
			output, err := ops.Summary(cfg, ops.SummaryInput{
				Source:       source,
				WithMarkdown: markdown,
				WithTable:    c.Bool("table"),
			})
			if err != nil {
				return outputError(err)
			}

			if markdown {
				_, err := fmt.Fprint(os.Stdout, output.Markdown)
				return err
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, log logrus.FieldLogger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the report dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8088, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", port)))
			}

			srv, err := web.NewServer(db, cfg, log, Version, c.String("bind"), port)
			if err != nil {
				return outputError(err)
			}
			if err := web.Run(srv, log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseList splits a comma-separated string into trimmed, non-empty items.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			items = append(items, t)
		}
	}
	return items
}
