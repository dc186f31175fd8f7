package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"compasseval/internal/agent"
	"compasseval/internal/dataset"
	"compasseval/internal/logging"
	"compasseval/internal/trajectory"
)

const (
	// DefaultConcurrency bounds simultaneous agent invocations.
	DefaultConcurrency = 10
	// DefaultCaseTimeout bounds a single agent invocation.
	DefaultCaseTimeout = 2 * time.Minute
	// DefaultThreshold is the mean score a run needs to pass.
	DefaultThreshold = 0.9
)

// invocationFailedPrefix starts the comment of a case whose agent call failed.
const invocationFailedPrefix = "agent invocation failed: "

// EvalOptions configures Evaluate.
type EvalOptions struct {
	Concurrency int
	CaseTimeout time.Duration
	Threshold   float64
	Observer    RunObserver
	NewThreadID func() string
	Logger      *slog.Logger
}

func (o EvalOptions) withDefaults() EvalOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.CaseTimeout <= 0 {
		o.CaseTimeout = DefaultCaseTimeout
	}
	if o.NewThreadID == nil {
		o.NewThreadID = func() string { return uuid.NewString() }
	}
	if o.Logger == nil {
		o.Logger = logging.New("runner")
	}
	return o
}

// Evaluate invokes the agent on every case with bounded concurrency and scores
// each trajectory against its reference.
//
// A failed invocation scores 0 and the run continues. If ctx is cancelled,
// cases that did not complete are left out and the partial report is returned
// with ctx's error.
func Evaluate(ctx context.Context, cases []dataset.Case, ag Agent, opts EvalOptions) (Report, error) {
	if ag == nil {
		return Report{}, errors.New("agent is required")
	}
	opts = opts.withDefaults()

	for index, item := range cases {
		emit(opts.Observer, CaseEvent{Index: index, Question: item.Question, Type: CaseQueued})
	}

	slots := make([]*ScoredResult, len(cases))
	var group errgroup.Group
	group.SetLimit(opts.Concurrency)
	for index, item := range cases {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			slots[index] = evaluateCase(ctx, index, item, ag, opts)
			return nil
		})
	}
	_ = group.Wait()

	results := make([]ScoredResult, 0, len(cases))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	report := NewReport(results, opts.Threshold)
	if err := ctx.Err(); err != nil {
		opts.Logger.Warn("evaluation interrupted", slog.Int("completed", len(results)), slog.Int("cases", len(cases)), slog.Any("error", err))
		return report, err
	}
	return report, nil
}

func evaluateCase(ctx context.Context, index int, item dataset.Case, ag Agent, opts EvalOptions) *ScoredResult {
	if ctx.Err() != nil {
		return nil
	}
	threadID := opts.NewThreadID()
	logger := opts.Logger.With(slog.Int("case", index), slog.String("thread_id", threadID))
	emit(opts.Observer, CaseEvent{Index: index, Question: item.Question, ThreadID: threadID, Type: CaseRunning})

	caseCtx, cancel := context.WithTimeout(ctx, opts.CaseTimeout)
	defer cancel()
	caseCtx = withToolListener(caseCtx, func(toolCall agent.ToolCall) {
		emit(opts.Observer, CaseEvent{Index: index, Question: item.Question, ThreadID: threadID, Type: CaseToolCall, ToolName: toolCall.Name})
	})

	start := time.Now()
	invocation, err := ag.Invoke(caseCtx, item.Question, threadID)
	elapsed := time.Since(start)
	if err != nil && ctx.Err() != nil {
		logger.Debug("case abandoned", slog.Any("error", err))
		return nil
	}

	observed := invocation.Trajectory
	if observed == nil {
		observed = []string{}
	}
	run := RunResult{
		Case:            item,
		Answer:          invocation.Answer,
		Trajectory:      observed,
		ThreadID:        threadID,
		WallTimeSeconds: elapsed.Seconds(),
		Steps:           invocation.Steps,
		Tokens:          invocation.Tokens,
	}

	if err != nil {
		var invocationErr *AgentInvocationError
		if !errors.As(err, &invocationErr) {
			err = &AgentInvocationError{ThreadID: threadID, Err: err}
		}
		run.Error = err.Error()
		scored := ScoredResult{Index: index, Run: run, Key: trajectory.ScoreKey, Score: 0, Comment: invocationFailedPrefix + err.Error()}
		logger.Warn("agent invocation failed", slog.Any("error", err))
		emit(opts.Observer, CaseEvent{Index: index, Question: item.Question, ThreadID: threadID, Type: CaseFailed, Comment: scored.Comment, Error: run.Error, WallTime: elapsed})
		return &scored
	}

	score := trajectory.Compare(observed, item.Trajectory)
	scored := ScoredResult{Index: index, Run: run, Key: score.Key, Score: score.Value, Comment: score.Comment}
	logger.Debug("case scored", slog.Float64("score", score.Value), slog.Any("trajectory", observed))
	emit(opts.Observer, CaseEvent{Index: index, Question: item.Question, ThreadID: threadID, Type: CaseScored, Score: score.Value, Comment: score.Comment, WallTime: elapsed})
	return &scored
}
