package call

import (
	"context"
	"fmt"
	"io"

	"compasseval/internal/agent"
)

// handleResponseStream consumes streamed output and executes any tools.
// Tool names are appended to the trajectory in the order the model emitted them.
func handleResponseStream(ctx context.Context, session *agent.Session, stream agent.Stream, executor agent.ToolExecutor, metrics *RunMetrics, opts RunOptions) (bool, error) {
	needsFollowUp := false
	for {
		event, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			return needsFollowUp, err
		}
		switch event.Type {
		case agent.StreamEventMessage:
			session.History = append(session.History, agent.HistoryItem{Role: "assistant", Content: agent.HistoryText{Text: event.Message}})
			logVerboseBlock(opts, "LLM output", event.Message, styleHeadingOutput, styleDefault)
		case agent.StreamEventToolCall:
			call := event.ToolCall
			if call.ID == "" {
				call.ID = fmt.Sprintf("call-%d", len(session.History))
			}
			logVerbose(opts, styleHeadingToolCall, fmt.Sprintf("Tool call id=%s name=%s args=%s", call.ID, call.Name, formatArgs(call.Args)))
			session.History = append(session.History, agent.HistoryItem{Role: "assistant", Content: call})
			metrics.ToolCalls[call.Name]++
			metrics.Trajectory = append(metrics.Trajectory, call.Name)
			if opts.OnToolCall != nil {
				opts.OnToolCall(call)
			}

			var result agent.ToolResult
			if executor == nil {
				result = agent.ErrorResult(call.Name, "no tool executor configured")
			} else {
				result = executor.Execute(ctx, call)
			}
			session.History = append(session.History, agent.HistoryItem{Role: "tool", Content: agent.ToolOutput{
				ToolCallID: call.ID,
				Result:     result,
			}})
			logVerboseToolOutput(opts, fmt.Sprintf("Tool result id=%s name=%s duration=%s bytes=%d truncated=%t error=%s", call.ID, result.Tool, result.Duration, result.OutputBytes, result.Truncated, result.Error), result.Output)
			needsFollowUp = true
		default:
			return needsFollowUp, fmt.Errorf("unknown stream event type: %d", event.Type)
		}
	}
	return needsFollowUp, nil
}
