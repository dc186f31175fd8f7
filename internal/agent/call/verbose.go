package call

import (
	"fmt"
	"io"
	"strings"

	"compasseval/internal/agent"
)

const (
	verbosePrefix                 = "[verbose]"
	verboseTruncationMarker       = "\n... [truncated]"
	verboseInlineTruncationMarker = "... [truncated]"
	verboseToolOutputMaxLines     = 5
	verboseMaxBytes               = 16 * 1024
)

type verboseSink struct {
	writer             io.Writer
	noColor            bool
	maxBytes           int
	toolOutputMaxLines int
}

// collectVerboseSinks returns the console sink (truncated, maybe colored)
// and the log file sink (complete, never colored) that are configured.
func collectVerboseSinks(opts RunOptions) []verboseSink {
	sinks := make([]verboseSink, 0, 2)
	if opts.Verbose && opts.VerboseWriter != nil {
		sinks = append(sinks, verboseSink{
			writer:             opts.VerboseWriter,
			noColor:            opts.NoColor,
			maxBytes:           verboseMaxBytes,
			toolOutputMaxLines: verboseToolOutputMaxLines,
		})
	}
	if opts.VerboseLogWriter != nil {
		sinks = append(sinks, verboseSink{writer: opts.VerboseLogWriter, noColor: true})
	}
	return sinks
}

func logVerbose(opts RunOptions, style verboseStyle, message string) {
	for _, sink := range collectVerboseSinks(opts) {
		writeVerboseLine(sink.writer, paletteFor(sink.writer, sink.noColor), style, message)
	}
}

func logVerboseBlock(opts RunOptions, header, body string, headerStyle, bodyStyle verboseStyle) {
	for _, sink := range collectVerboseSinks(opts) {
		palette := paletteFor(sink.writer, sink.noColor)
		writeVerboseLine(sink.writer, palette, headerStyle, header)
		writeVerboseBody(sink.writer, palette, bodyStyle, truncate(body, sink.maxBytes, verboseTruncationMarker))
	}
}

func logVerboseToolOutput(opts RunOptions, header, body string) {
	for _, sink := range collectVerboseSinks(opts) {
		palette := paletteFor(sink.writer, sink.noColor)
		writeVerboseLine(sink.writer, palette, styleHeadingToolResult, header)
		limited := limitOutputLines(body, sink.toolOutputMaxLines)
		writeVerboseBody(sink.writer, palette, styleDefault, truncate(limited, sink.maxBytes, verboseInlineTruncationMarker))
	}
}

func logVerbosePrompt(opts RunOptions, prompt agent.Prompt, step int) {
	header := fmt.Sprintf("LLM prompt (step %d)", step)
	for _, sink := range collectVerboseSinks(opts) {
		palette := paletteFor(sink.writer, sink.noColor)
		writeVerboseLine(sink.writer, palette, styleHeadingPrompt, header)
		body := formatPrompt(prompt, sink.toolOutputMaxLines)
		writeVerboseBody(sink.writer, palette, styleDim, truncate(body, sink.maxBytes, verboseTruncationMarker))
	}
}

func writeVerboseBody(w io.Writer, palette verbosePalette, style verboseStyle, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	for _, line := range strings.Split(body, "\n") {
		writeVerboseLine(w, palette, style, line)
	}
}

func writeVerboseLine(w io.Writer, palette verbosePalette, style verboseStyle, line string) {
	fmt.Fprintf(w, "%s %s\n", palette.apply(styleDim, verbosePrefix), palette.apply(style, line))
}

// truncate cuts value to maxBytes including the marker. Zero disables the limit.
func truncate(value string, maxBytes int, marker string) string {
	if maxBytes <= 0 || len(value) <= maxBytes {
		return value
	}
	if maxBytes <= len(marker) {
		return marker[:maxBytes]
	}
	return value[:maxBytes-len(marker)] + marker
}

// limitOutputLines keeps at most maxLines lines. Zero disables the limit.
func limitOutputLines(value string, maxLines int) string {
	if maxLines <= 0 {
		return value
	}
	trimmed := strings.TrimRight(value, "\n")
	if strings.TrimSpace(trimmed) == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= maxLines {
		return trimmed
	}
	lines = lines[:maxLines]
	last := maxLines - 1
	if strings.TrimSpace(lines[last]) == "" {
		lines[last] = verboseInlineTruncationMarker
	} else {
		lines[last] += " " + verboseInlineTruncationMarker
	}
	return strings.Join(lines, "\n")
}
