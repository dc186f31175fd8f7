package live

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"compasseval/internal/runner"
)

// Messages the Controller feeds into the program.
type (
	runStartedMsg runner.RunInfo
	caseMsg       runner.CaseEvent
	runEndedMsg   runner.Report
	tickMsg       time.Time
)

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
