package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	if noColor {
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// columnsForWidth sizes the question column to the terminal width.
func columnsForWidth(width int) []table.Column {
	question := width - 4 - 28 - 6 - 8 - 40 - 10
	if question < 20 {
		question = 20
	}
	return []table.Column{
		{Title: "Case", Width: 4},
		{Title: "Question", Width: question},
		{Title: "Status", Width: 28},
		{Title: "Score", Width: 6},
		{Title: "Time", Width: 8},
		{Title: "Comment", Width: 40},
	}
}

// defaultColumns is the layout before the first window size message.
func defaultColumns() []table.Column {
	return columnsForWidth(140)
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			formatIndex(row.Index),
			formatCaseText(row.Text, 80),
			formatStatus(row, noColor),
			formatScore(row),
			formatRowDuration(row, now),
			formatNote(row),
		})
	}
	return rows
}
