package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"compasseval/internal/store"
)

const defaultHistoryLimit = 10

// runHistory builds the handler for the history command.
func runHistory(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .compasseval.yml)")
		storeFlag := fs.String("store", "", "DuckDB results store (defaults to config store.path)")
		limit := fs.Int("limit", defaultHistoryLimit, "Maximum runs to list")
		format := fs.String("format", "table", "Output format: table|markdown")
		positional, code, ok := parseFlags(cmd, fs, args, stdout, stderr)
		if !ok {
			return code
		}
		if len(positional) != 1 || *limit < 1 {
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if *format != "table" && *format != "markdown" {
			fmt.Fprintf(stderr, "Invalid format %q (expected table or markdown)\n", *format)
			return ExitUsage
		}

		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		path := storePath(*storeFlag, cfg)
		if path == "" {
			fmt.Fprintln(stderr, "Missing --store (no store.path configured)")
			return ExitUsage
		}

		ctx := context.Background()
		db, err := store.Open(ctx, path)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open store: %v\n", err)
			return ExitError
		}
		defer func() { _ = db.Close() }()

		records, err := store.RunHistoryForSource(ctx, db, positional[0], *limit)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read history: %v\n", err)
			return ExitError
		}
		if len(records) == 0 {
			fmt.Fprintf(stdout, "No runs recorded for %s\n", positional[0])
			return ExitOK
		}

		fmt.Fprint(stdout, renderHistory(records, *format == "markdown"))
		return ExitOK
	}
}

// renderHistory lays out runs newest first; markdown suits CI job summaries.
func renderHistory(records []store.RunRecord, markdown bool) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Model", "Started", "Cases", "Failing", "Grade", "Result"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, record := range records {
		verdict := "FAIL"
		if record.Pass {
			verdict = "PASS"
		}
		t.AppendRow(table.Row{
			record.RunID,
			record.Model,
			record.StartedAt.Format("2006-01-02 15:04:05"),
			record.Cases,
			record.Failing,
			fmt.Sprintf("%.2f%%", record.MeanScore*100),
			verdict,
		})
	}
	if markdown {
		return t.RenderMarkdown() + "\n"
	}
	return t.Render() + "\n"
}
