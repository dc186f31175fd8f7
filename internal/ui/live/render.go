package live

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the run header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	line := "Run " + state.RunID
	if state.Model != "" {
		line += " | Model: " + state.Model
	}
	if !state.StartedAt.IsZero() {
		line += " | Elapsed: " + now.Sub(state.StartedAt).Round(100*time.Millisecond).String()
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderSummary renders the status counts and running grade.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	line := "Queued: " + fmtInt(counts.Queued) +
		" Running: " + fmtInt(counts.Running) +
		" Done: " + fmtInt(counts.Done) +
		" Perfect: " + fmtInt(counts.Perfect) +
		" Partial: " + fmtInt(counts.Partial) +
		" Failed: " + fmtInt(counts.Failed) +
		fmt.Sprintf(" | Grade: %.2f%% (threshold %.2f%%)", state.MeanScore*100, state.Threshold*100)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderDatasetLine renders the dataset line.
func renderDatasetLine(state State, noColor bool) string {
	if state.Dataset == "" {
		return ""
	}
	return stylize("Dataset "+state.Dataset, noColor, lipgloss.Color("240"))
}

// renderFooter renders the last event line, or the verdict once finished.
func renderFooter(state State, noColor bool) string {
	if state.Finished {
		verdict := "FAIL"
		color := lipgloss.Color("196")
		if state.Pass {
			verdict = "PASS"
			color = lipgloss.Color("42")
		}
		return stylize(fmt.Sprintf("%s grade = %.2f%%", verdict, state.MeanScore*100), noColor, color)
	}
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
