package call

import (
	"context"
	"fmt"
	"time"

	"compasseval/internal/agent"
)

// RunCall answers one user message. The model is re-prompted after every
// batch of tool calls and the call ends on the first reply without tools.
func RunCall(ctx context.Context, session *agent.Session, provider agent.Provider, executor agent.ToolExecutor, userText string, opts RunOptions) (CallResult, error) {
	limits := newBudget(opts.Limits, opts.TokenCounter)
	metrics := RunMetrics{ToolCalls: map[string]int{}, Trajectory: []string{}}
	session.History = append(session.History, agent.HistoryItem{Role: "user", Content: agent.HistoryText{Text: userText}})

	runErr := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := limits.check(session.History, metrics.Steps); err != nil {
				return err
			}
			prompt := agent.BuildPrompt(session.Ctx, session.History)
			logVerbosePrompt(opts, prompt, metrics.Steps+1)
			stream, err := provider.Stream(ctx, prompt)
			if err != nil {
				return err
			}
			metrics.Steps++
			calledTools, err := handleResponseStream(ctx, session, stream, executor, &metrics, opts)
			if err != nil || !calledTools {
				return err
			}
		}
	}()

	metrics.WallTime = limits.elapsed()
	metrics.Tokens = limits.tokens(session.History)
	logVerbose(opts, styleHeadingMetrics, fmt.Sprintf("Metrics thread=%s steps=%d tokens=%d wall=%s trajectory=%v",
		session.Ctx.ThreadID, metrics.Steps, metrics.Tokens, metrics.WallTime.Round(time.Millisecond), metrics.Trajectory))
	return CallResult{
		Output:  lastAnswer(session.History),
		Metrics: metrics,
		Reason:  reasonFor(runErr),
	}, runErr
}
