//go:build cucumber

package cucumber

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"compasseval/internal/cli"
)

// iRunCommand runs one CLI invocation in-process against the scenario workspace.
// Single quotes group words so paths with spaces survive.
func (s *featureState) iRunCommand(line string) error {
	args, err := splitCommandLine(line)
	if err != nil {
		return err
	}
	if len(args) > 0 && args[0] == "compasseval" {
		args = args[1:]
	}
	s.stdout.Reset()
	s.stderr.Reset()
	s.lastCommand = line
	s.exitCode = cli.Run(args, &s.stdout, &s.stderr)
	return nil
}

func splitCommandLine(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range line {
		switch {
		case r == '\'':
			quoted = !quoted
			pending = true
		case r == ' ' && !quoted:
			if pending {
				args = append(args, current.String())
				current.Reset()
				pending = false
			}
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if pending {
		args = append(args, current.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("command is empty")
	}
	return args, nil
}

func (s *featureState) theExitCodeIs(code int) error {
	if s.exitCode != code {
		return fmt.Errorf("%q exited %d, want %d (stdout %q, stderr %q)", s.lastCommand, s.exitCode, code, s.stdout.String(), s.stderr.String())
	}
	return nil
}

// theOutputListsCommands checks the first word of each line under "Commands:".
func (s *featureState) theOutputListsCommands(table *godog.Table) error {
	listed := map[string]bool{}
	inCommands := false
	for _, line := range strings.Split(s.stdout.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "Commands:":
			inCommands = true
		case trimmed == "":
			inCommands = false
		case inCommands:
			listed[strings.Fields(trimmed)[0]] = true
		}
	}
	for _, row := range table.Rows {
		for _, cell := range row.Cells {
			name := strings.TrimSpace(cell.Value)
			if name != "" && !listed[name] {
				return fmt.Errorf("command %q missing from help output %q", name, s.stdout.String())
			}
		}
	}
	return nil
}
