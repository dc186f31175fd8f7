package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootHelpListsCommands(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := Run([]string{"--help"}, &out, &errOut); code != ExitOK {
		t.Fatalf("expected exit %d, got %d", ExitOK, code)
	}
	if errOut.Len() != 0 {
		t.Fatalf("expected no stderr output, got %q", errOut.String())
	}
	output := out.String()
	if !strings.Contains(output, "compasseval <command> [options]") {
		t.Fatalf("expected usage header, got %q", output)
	}
	for _, cmd := range commands {
		if !strings.Contains(output, cmd.Name) || !strings.Contains(output, cmd.Summary) {
			t.Fatalf("expected command %q with its summary in output", cmd.Name)
		}
	}
}

func TestNoArgsIsUsageError(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := Run(nil, &out, &errOut); code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("expected usage output, got %q", out.String())
	}
}

func TestUnknownCommandGoesToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := Run([]string{"serve"}, &out, &errOut); code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout output, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "Unknown command: serve") {
		t.Fatalf("expected unknown command error, got %q", errOut.String())
	}
}

func TestEveryCommandPrintsHelp(t *testing.T) {
	for _, cmd := range commands {
		for _, flag := range []string{"--help", "-h"} {
			var out, errOut bytes.Buffer
			if code := Run([]string{cmd.Name, flag}, &out, &errOut); code != ExitOK {
				t.Fatalf("%s %s: expected exit %d, got %d", cmd.Name, flag, ExitOK, code)
			}
			if errOut.Len() != 0 {
				t.Fatalf("%s %s: expected no stderr output, got %q", cmd.Name, flag, errOut.String())
			}
			for _, line := range cmd.Usage {
				if !strings.Contains(out.String(), line) {
					t.Fatalf("%s: expected usage line %q", cmd.Name, line)
				}
			}
		}
	}
}

func TestDatasetPushHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := Run([]string{"dataset", "push", "--help"}, &out, &errOut); code != ExitOK {
		t.Fatalf("expected exit %d, got %d", ExitOK, code)
	}
	if !strings.Contains(out.String(), "compasseval dataset push") {
		t.Fatalf("expected push usage, got %q", out.String())
	}
}

func TestHelpCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := Run([]string{"help", "history"}, &out, &errOut); code != ExitOK {
		t.Fatalf("expected exit %d, got %d", ExitOK, code)
	}
	if !strings.Contains(out.String(), "compasseval history <dataset.yml>") {
		t.Fatalf("expected history usage, got %q", out.String())
	}

	out.Reset()
	if code := Run([]string{"help"}, &out, &errOut); code != ExitOK || !strings.Contains(out.String(), "Commands:") {
		t.Fatalf("expected root usage, got %d %q", code, out.String())
	}

	if code := Run([]string{"help", "serve"}, &out, &errOut); code != ExitUsage {
		t.Fatalf("expected exit %d for unknown help topic, got %d", ExitUsage, code)
	}
}
