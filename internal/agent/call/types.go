package call

import (
	"errors"
	"io"
	"time"

	"compasseval/internal/agent"
)

// ErrBudgetExceeded signals that a run hit one of its RunLimits.
var ErrBudgetExceeded = errors.New("budget exceeded")

// RunLimits bounds steps, time, and token usage. Zero disables a limit.
type RunLimits struct {
	MaxSteps   int
	MaxSeconds time.Duration
	MaxTokens  int
}

// RunOptions configures per-run behavior and logging.
type RunOptions struct {
	TokenCounter     agent.TokenCounter
	Limits           RunLimits
	Verbose          bool
	VerboseWriter    io.Writer
	VerboseLogWriter io.Writer
	NoColor          bool
	// OnToolCall is invoked before each tool call executes.
	OnToolCall func(call agent.ToolCall)
}

// RunMetrics captures execution effort for a run.
type RunMetrics struct {
	ToolCalls  map[string]int
	Trajectory []string
	WallTime   time.Duration
	Tokens     int
	Steps      int
}

// FailureReason classifies why a call stopped early.
type FailureReason string

const (
	ReasonNone     FailureReason = ""
	ReasonBudget   FailureReason = "budget_exceeded"
	ReasonTimeout  FailureReason = "timeout"
	ReasonCanceled FailureReason = "canceled"
	ReasonRuntime  FailureReason = "runtime_error"
)

// CallResult captures the terminal output and metrics.
type CallResult struct {
	Output  string
	Metrics RunMetrics
	Reason  FailureReason
}
