package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"compasseval/internal/dataset"
	"compasseval/internal/store"
)

// runDataset builds the handler for the dataset command and its subcommands.
func runDataset(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if len(args) == 0 {
			printCommandUsage(cmd, stdout)
			return ExitUsage
		}
		switch args[0] {
		case "-h", "--help", "help":
			printCommandUsage(cmd, stdout)
			return ExitOK
		case "push":
			return runDatasetPush(cmd, args[1:], stdout, stderr)
		default:
			fmt.Fprintf(stderr, "Unknown dataset subcommand: %s\n", args[0])
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
	}
}

func runDatasetPush(cmd *Command, args []string, stdout, stderr io.Writer) int {
	if wantsHelp(args) {
		printCommandUsage(cmd, stdout)
		return ExitOK
	}
	fs := flag.NewFlagSet("dataset push", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (default: search for .compasseval.yml)")
	storeFlag := fs.String("store", "", "DuckDB results store (defaults to config store.path)")
	positional, code, ok := parseFlags(cmd, fs, args, stdout, stderr)
	if !ok {
		return code
	}
	if len(positional) != 1 {
		printCommandUsage(cmd, stderr)
		return ExitUsage
	}
	datasetPath := positional[0]

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

	cases, err := dataset.LoadFile(datasetPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load dataset: %v\n", err)
		return ExitError
	}

	ctx := context.Background()
	db, err := store.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open store: %v\n", err)
		return ExitError
	}
	defer func() { _ = db.Close() }()

	name := dataset.DatasetName(datasetPath, time.Now().UTC())
	record, err := store.UpsertDataset(ctx, db, name, datasetPath, dataset.Description, cases)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to push dataset: %v\n", err)
		return ExitError
	}
	fmt.Fprintf(stdout, "Dataset %s %s\n", record.Name, record.Outcome)
	fmt.Fprintf(stdout, "ID: %s\n", record.ID)
	fmt.Fprintf(stdout, "Revision: %d (%d examples)\n", record.Revision, len(cases))
	return ExitOK
}
