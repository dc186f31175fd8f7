package cli

import (
	"fmt"
	"io"
	"slices"
)

// Process exit codes. ExitUsage covers bad flags and arguments.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Command is one compasseval subcommand.
type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdout, stderr io.Writer) int
}

// Run dispatches args to a subcommand and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	switch name := args[0]; name {
	case "-h", "--help":
		printUsage(stdout)
		return ExitOK
	case "help":
		return runHelp(args[1:], stdout, stderr)
	default:
		cmd := findCommand(name)
		if cmd == nil {
			fmt.Fprintf(stderr, "Unknown command: %s\n\n", name)
			printUsage(stderr)
			return ExitUsage
		}
		return cmd.Run(args[1:], stdout, stderr)
	}
}

// runHelp serves "help" and "help <command>".
func runHelp(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitOK
	}
	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return ExitUsage
	}
	printCommandUsage(cmd, stdout)
	return ExitOK
}

func findCommand(name string) *Command {
	i := slices.IndexFunc(commands, func(cmd *Command) bool { return cmd.Name == name })
	if i < 0 {
		return nil
	}
	return commands[i]
}

// wantsHelp reports a help flag anywhere in a subcommand's arguments.
func wantsHelp(args []string) bool {
	return slices.Contains(args, "-h") || slices.Contains(args, "--help")
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, "Usage:\n  compasseval <command> [options]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprint(w, "\nUse \"compasseval help <command>\" for more information.\n")
}

func printCommandUsage(cmd *Command, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
}

// command binds a handler that needs its own Command for usage output.
func command(name, summary string, usage []string, handler func(cmd *Command) func(args []string, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{Name: name, Summary: summary, Usage: usage}
	cmd.Run = handler(cmd)
	return cmd
}

var commands = []*Command{
	command("init", "Scaffold .compasseval.yml", []string{
		"compasseval init [--config <path>] [--dataset <path>]",
	}, runInit),
	command("validate", "Validate a dataset and the config", []string{
		"compasseval validate <dataset.yml> [--config <path>]",
	}, runValidate),
	command("eval", "Evaluate agent trajectories against a dataset", []string{
		"compasseval eval <dataset.yml> [--model <id>] [--threshold <0..1>] [--concurrency <n>]",
		"  [--case-timeout <duration>] [--config <path>] [--output-dir <dir>] [--store <path>]",
		"  [--ui auto|live|plain] [--verbose] [--log <path>] [--no-color] [--upload] [--log-level <level>]",
	}, runEval),
	command("dataset", "Manage stored datasets", []string{
		"compasseval dataset push <dataset.yml> [--store <path>] [--config <path>]",
	}, runDataset),
	command("history", "List recent runs for a dataset", []string{
		"compasseval history <dataset.yml> [--store <path>] [--limit <n>] [--format table|markdown] [--config <path>]",
	}, runHistory),
	command("tx", "Build, sign and broadcast a Compass transaction", []string{
		"compasseval tx --path <endpoint> --body <file.json> [--no-wait] [--config <path>]",
		"compasseval tx --plan <steps.yml> [--report <gas.json>] [--config <path>]",
	}, runTx),
}
