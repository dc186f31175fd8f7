package call

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var isTerminal = term.IsTerminal

// verboseStyle selects how verbose output is styled.
type verboseStyle int

const (
	styleDefault verboseStyle = iota
	styleDim
	styleHeadingPrompt
	styleHeadingOutput
	styleHeadingToolCall
	styleHeadingToolResult
	styleHeadingMetrics
	styleHeadingError
)

// verbosePalette maps verbose styles to lipgloss styles for one writer.
type verbosePalette struct {
	enabled bool
	styles  map[verboseStyle]lipgloss.Style
}

// paletteFor selects a palette based on the writer and color settings.
func paletteFor(writer io.Writer, noColor bool) verbosePalette {
	if noColor || !shouldUseStyling(writer) {
		return verbosePalette{}
	}
	renderer := lipgloss.NewRenderer(writer)
	heading := func(color string) lipgloss.Style {
		return renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	return verbosePalette{
		enabled: true,
		styles: map[verboseStyle]lipgloss.Style{
			styleDim:               renderer.NewStyle().Faint(true).Foreground(lipgloss.Color("8")),
			styleHeadingPrompt:     heading("6"),
			styleHeadingOutput:     heading("5"),
			styleHeadingToolCall:   heading("3"),
			styleHeadingToolResult: heading("2"),
			styleHeadingMetrics:    heading("4"),
			styleHeadingError:      heading("1"),
		},
	}
}

// shouldUseStyling reports whether the writer is a color-capable terminal.
func shouldUseStyling(writer io.Writer) bool {
	if writer == nil {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if strings.EqualFold(os.Getenv("CLICOLOR"), "0") {
		return false
	}
	if fder, ok := writer.(interface{ Fd() uintptr }); ok {
		return isTerminal(int(fder.Fd()))
	}
	return false
}

// apply renders text in the requested style.
func (p verbosePalette) apply(style verboseStyle, text string) string {
	if !p.enabled {
		return text
	}
	rendered, ok := p.styles[style]
	if !ok {
		return text
	}
	return rendered.Render(text)
}
