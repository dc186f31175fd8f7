package live

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"compasseval/internal/runner"
)

// formatIndex formats a case index.
func formatIndex(index int) string {
	return "C" + pad2(index+1)
}

// pad2 left-pads a number to two digits when needed.
func pad2(value int) string {
	if value >= 10 {
		return fmtInt(value)
	}
	return "0" + fmtInt(value)
}

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

// formatCaseText truncates question text for display.
func formatCaseText(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if limit <= 3 || len(normalized) <= limit {
		return normalized
	}
	return normalized[:limit-3] + "..."
}

// formatStatus renders the status cell for a row.
func formatStatus(row CaseRow, noColor bool) string {
	label := string(row.Status)
	if row.Status == runner.CaseRunning && row.LastTool != "" {
		label += " (" + row.LastTool + ")"
	}
	return stylizeStatus(label, row, noColor)
}

// formatScore renders the score cell.
func formatScore(row CaseRow) string {
	switch row.Status {
	case runner.CaseScored, runner.CaseFailed:
		return strconv.FormatFloat(row.Score, 'f', 2, 64)
	}
	return ""
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row CaseRow, now time.Time) string {
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return formatDuration(row.FinishedAt.Sub(row.StartedAt))
	}
	if !row.StartedAt.IsZero() {
		return formatDuration(now.Sub(row.StartedAt))
	}
	return ""
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}

// formatNote renders the comment or error of a finished case.
func formatNote(row CaseRow) string {
	if row.Comment != "" {
		return formatCaseText(row.Comment, 60)
	}
	return ""
}

// stylizeStatus applies status coloring when enabled.
func stylizeStatus(text string, row CaseRow, noColor bool) string {
	if noColor {
		return text
	}
	return statusStyle(row).Render(text)
}

// statusStyle selects a style for a row's status.
func statusStyle(row CaseRow) lipgloss.Style {
	color := lipgloss.Color("246")
	switch row.Status {
	case runner.CaseScored:
		color = lipgloss.Color("42")
		if row.Score < 1 {
			color = lipgloss.Color("220")
		}
	case runner.CaseFailed:
		color = lipgloss.Color("196")
	case runner.CaseRunning:
		color = lipgloss.Color("33")
	}
	return lipgloss.NewStyle().Foreground(color)
}
