package live

import (
	"fmt"

	"compasseval/internal/runner"
)

// Reduce applies a case event to the UI state.
func Reduce(state State, event runner.CaseEvent) State {
	state = ensureRow(state, event)
	state = applyCaseEvent(state, event)
	state.Counts, state.MeanScore = recount(state.Rows)
	if message := formatLastEvent(event); message != "" {
		state.LastEvent = message
	}
	return state
}

// ensureRow grows the state rows to include the target index.
func ensureRow(state State, event runner.CaseEvent) State {
	if event.Index < 0 || event.Index < len(state.Rows) {
		return state
	}
	rows := make([]CaseRow, event.Index+1)
	copy(rows, state.Rows)
	for i := len(state.Rows); i < len(rows); i++ {
		rows[i] = CaseRow{Index: i, Status: runner.CaseQueued}
	}
	state.Rows = rows
	return state
}

// applyCaseEvent updates a row with the given event.
func applyCaseEvent(state State, event runner.CaseEvent) State {
	if event.Index < 0 || event.Index >= len(state.Rows) {
		return state
	}
	row := state.Rows[event.Index]
	if row.Text == "" {
		row.Text = event.Question
	}
	switch event.Type {
	case runner.CaseToolCall:
		row.LastTool = event.ToolName
		row.ToolCalls++
	case runner.CaseRunning:
		row.Status = event.Type
		if row.StartedAt.IsZero() {
			row.StartedAt = event.EmittedAt
		}
	case runner.CaseScored, runner.CaseFailed:
		row.Status = event.Type
		row.FinishedAt = event.EmittedAt
		row.Score = event.Score
		row.Comment = event.Comment
		row.Error = event.Error
	default:
		row.Status = event.Type
	}
	state.Rows[event.Index] = row
	return state
}

// recount recomputes status counts and the running mean.
func recount(rows []CaseRow) (StatusCounts, float64) {
	var counts StatusCounts
	total := 0.0
	for _, row := range rows {
		switch row.Status {
		case runner.CaseQueued:
			counts.Queued++
		case runner.CaseRunning:
			counts.Running++
		case runner.CaseScored:
			counts.Done++
			total += row.Score
			if row.Score >= 1 {
				counts.Perfect++
			} else {
				counts.Partial++
			}
		case runner.CaseFailed:
			counts.Done++
			counts.Failed++
		}
	}
	if counts.Done == 0 {
		return counts, 0
	}
	return counts, total / float64(counts.Done)
}

// formatLastEvent creates a short footer message for the event.
func formatLastEvent(event runner.CaseEvent) string {
	switch event.Type {
	case runner.CaseToolCall:
		return fmt.Sprintf("C%d called %s", event.Index+1, event.ToolName)
	case runner.CaseScored:
		return fmt.Sprintf("C%d scored %.2f", event.Index+1, event.Score)
	case runner.CaseFailed:
		return fmt.Sprintf("C%d failed: %s", event.Index+1, event.Error)
	}
	return ""
}
