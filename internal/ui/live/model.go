package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"compasseval/internal/runner"
)

const defaultTickInterval = 200 * time.Millisecond

// Options configures the live UI.
type Options struct {
	NoColor      bool
	TickInterval time.Duration
	// OnInterrupt runs when the user presses ctrl+c. The terminal is in raw
	// mode while the UI is up, so no SIGINT reaches the process.
	OnInterrupt func()
}

// Model is the Bubble Tea model behind the live run table.
type Model struct {
	state State
	table table.Model
	opts  Options
	now   time.Time
}

// NewModel builds an empty model; rows appear with the run start message.
func NewModel(opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	t := table.New(
		table.WithColumns(defaultColumns()),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
	)
	t.SetStyles(tableStyles(opts.NoColor))
	return Model{table: t, opts: opts, now: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return tick(m.opts.TickInterval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-4, 1))
		m.table.SetColumns(columnsForWidth(msg.Width))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && m.opts.OnInterrupt != nil {
			m.opts.OnInterrupt()
			m.state.LastEvent = "interrupt requested, waiting for running cases"
		}
		return m, nil
	case tickMsg:
		m.now = time.Time(msg)
		return m.refresh(), tick(m.opts.TickInterval)
	case runStartedMsg:
		m.state = State{
			RunID:     msg.RunID,
			Dataset:   msg.Dataset,
			Model:     msg.Model,
			Threshold: msg.Threshold,
			StartedAt: time.Now(),
		}
		for index, question := range msg.Cases {
			m.state = Reduce(m.state, runner.CaseEvent{Index: index, Question: question, Type: runner.CaseQueued})
		}
	case caseMsg:
		m.state = Reduce(m.state, runner.CaseEvent(msg))
	case runEndedMsg:
		m.state.Finished = true
		m.state.Pass = msg.Pass
		m.state.MeanScore = msg.MeanScore
	default:
		return m, nil
	}
	return m.refresh(), nil
}

func (m Model) refresh() Model {
	m.table.SetRows(rowsForState(m.state, m.now, m.opts.NoColor))
	return m
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.state, m.now, m.opts.NoColor),
		renderSummary(m.state, m.opts.NoColor),
		renderDatasetLine(m.state, m.opts.NoColor),
		m.table.View(),
		renderFooter(m.state, m.opts.NoColor),
	)
}
