package agent

import (
	"context"
	"time"
)

// StreamEventType identifies streamed event kinds.
type StreamEventType int

const (
	StreamEventMessage StreamEventType = iota
	StreamEventToolCall
)

// StreamEvent carries either a message or tool call from the model stream.
type StreamEvent struct {
	Type     StreamEventType
	Message  string
	ToolCall ToolCall
}

// Stream yields incremental model events.
type Stream interface {
	Recv() (StreamEvent, error)
}

// Provider streams model responses for a prompt.
type Provider interface {
	Stream(ctx context.Context, prompt Prompt) (Stream, error)
}

// ToolCall describes a tool invocation emitted by the model.
type ToolCall struct {
	ID   string
	Name string
	Args ToolCallArgs
}

// ToolResult is what a tool returned to the model.
type ToolResult struct {
	Tool        string
	Output      string
	OutputBytes int
	Truncated   bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
	Error       string
}

// ToolOutput pairs a tool result with the call that produced it.
type ToolOutput struct {
	ToolCallID string
	Result     ToolResult
}

// ToolExecutor executes tool calls. Failures are reported inside the result.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) ToolResult
}

// TokenCounter estimates the token size of a history.
type TokenCounter func(history []HistoryItem) int

// ErrorResult builds a tool result describing a failed tool call.
func ErrorResult(name, message string) ToolResult {
	now := time.Now()
	output := "error: " + message
	return ToolResult{
		Tool:        name,
		Output:      output,
		OutputBytes: len(output),
		StartedAt:   now,
		FinishedAt:  now,
		Error:       message,
	}
}
