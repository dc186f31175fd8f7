package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"compasseval/internal/dataset"
)

// runValidate builds the handler for the validate command.
func runValidate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: search for .compasseval.yml)")
		positional, code, ok := parseFlags(cmd, flags, args, stdout, stderr)
		if !ok {
			return code
		}
		if len(positional) != 1 {
			if len(positional) > 1 {
				fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(positional[1:], " "))
			}
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		_, resolved, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Validation failed:\n%s\n", err.Error())
			return ExitError
		}

		cases, err := dataset.LoadFile(positional[0])
		if err != nil {
			fmt.Fprintf(stderr, "Validation failed:\n%s\n", err.Error())
			return ExitError
		}

		if resolved != "" {
			fmt.Fprintf(stdout, "Config OK (%s)\n", resolved)
		} else {
			fmt.Fprintln(stdout, "Config OK (defaults)")
		}
		fmt.Fprintf(stdout, "Dataset OK: %d cases\n", len(cases))
		return ExitOK
	}
}
