package runner

import "time"

// CaseEventType identifies a case status update for observers.
type CaseEventType string

const (
	// CaseQueued marks a case known but not yet started.
	CaseQueued CaseEventType = "queued"
	// CaseRunning marks an active agent invocation.
	CaseRunning CaseEventType = "running"
	// CaseToolCall marks a tool call made by the agent.
	CaseToolCall CaseEventType = "tool_call"
	// CaseScored marks a completed and scored case.
	CaseScored CaseEventType = "scored"
	// CaseFailed marks a case whose agent invocation failed.
	CaseFailed CaseEventType = "failed"
)

// CaseEvent carries a single status update for a case.
type CaseEvent struct {
	Index     int
	Question  string
	ThreadID  string
	Type      CaseEventType
	ToolName  string
	Score     float64
	Comment   string
	Error     string
	WallTime  time.Duration
	EmittedAt time.Time
}

// RunInfo describes a run as it starts.
type RunInfo struct {
	RunID     string
	Dataset   string
	Model     string
	Cases     []string
	Threshold float64
}

// RunObserver receives run lifecycle events for UI or logging.
// OnCaseEvent may be called from several goroutines at once.
type RunObserver interface {
	OnRunStart(info RunInfo)
	OnCaseEvent(event CaseEvent)
	OnRunEnd(results Results)
}

func emit(observer RunObserver, event CaseEvent) {
	if observer == nil {
		return
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now()
	}
	observer.OnCaseEvent(event)
}
