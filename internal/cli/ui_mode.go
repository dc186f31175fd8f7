package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// uiMode selects how eval reports progress.
type uiMode string

const (
	uiAuto  uiMode = "auto"
	uiLive  uiMode = "live"
	uiPlain uiMode = "plain"
)

// uiModeDecision captures whether to use the live UI.
type uiModeDecision struct {
	useLive bool
	warning string
}

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal

func parseUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return uiAuto, nil
	case uiAuto, uiLive, uiPlain:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid ui mode %q (expected auto|live|plain)", value)
	}
}

// resolveUIMode decides between the live table and plain progress lines.
// Verbose traces write to stdout, so they always force plain output.
func resolveUIMode(value string, verbose bool, stdout io.Writer) (uiModeDecision, error) {
	mode, err := parseUIMode(value)
	if err != nil {
		return uiModeDecision{}, err
	}
	if verbose {
		return uiModeDecision{}, nil
	}
	tty := isTerminal(stdout)
	switch mode {
	case uiLive:
		if !tty {
			return uiModeDecision{warning: "Live UI requested but stdout is not a TTY; falling back to plain output."}, nil
		}
		return uiModeDecision{useLive: true}, nil
	case uiPlain:
		return uiModeDecision{}, nil
	default:
		return uiModeDecision{useLive: tty}, nil
	}
}

func defaultIsTerminal(stdout io.Writer) bool {
	switch w := stdout.(type) {
	case nil:
		return false
	case *os.File:
		return term.IsTerminal(int(w.Fd()))
	case interface{ Fd() uintptr }:
		return term.IsTerminal(int(w.Fd()))
	default:
		return false
	}
}
