package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"compasseval/internal/config"
	"compasseval/internal/dataset"
)

// runInit scaffolds a config and, with --dataset, a starter fixture.
// Neither file is overwritten.
func runInit(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", config.ConfigFileName, "Path of the config file to create")
		datasetPath := fs.String("dataset", "", "Also write an example dataset to this path")
		positional, code, ok := parseFlags(cmd, fs, args, stdout, stderr)
		if !ok {
			return code
		}
		if len(positional) > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(positional, " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		created := make([]string, 0, 2)
		if err := config.Scaffold(*configPath); err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		created = append(created, *configPath)
		if path := strings.TrimSpace(*datasetPath); path != "" {
			if err := dataset.WriteExample(path); err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
			created = append(created, path)
		}
		for _, path := range created {
			fmt.Fprintf(stdout, "Created %s\n", path)
		}
		fmt.Fprintln(stdout, "Set OPENAI_API_KEY and COMPASS_API_KEY before running compasseval eval.")
		return ExitOK
	}
}
