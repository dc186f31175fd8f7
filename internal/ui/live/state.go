package live

import (
	"time"

	"compasseval/internal/runner"
)

// CaseRow holds UI state for a single case.
type CaseRow struct {
	Index      int
	Text       string
	Status     runner.CaseEventType
	LastTool   string
	ToolCalls  int
	StartedAt  time.Time
	FinishedAt time.Time
	Score      float64
	Comment    string
	Error      string
}

// StatusCounts aggregates counts by status bucket.
type StatusCounts struct {
	Queued  int
	Running int
	Done    int
	Perfect int
	Partial int
	Failed  int
}

// State captures the live UI state for a run.
type State struct {
	RunID     string
	Dataset   string
	Model     string
	Threshold float64
	StartedAt time.Time
	LastEvent string
	Rows      []CaseRow
	Counts    StatusCounts
	// MeanScore averages the cases finished so far.
	MeanScore float64
	Finished  bool
	Pass      bool
}
