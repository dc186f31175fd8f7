package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"compasseval/internal/agent"
	"compasseval/internal/agent/call"
	"compasseval/internal/logging"
)

// Invocation is what one agent call produced for one question.
type Invocation struct {
	Answer     string
	Trajectory []string
	Steps      int
	Tokens     int
	WallTime   time.Duration
}

// Agent answers one question on one conversation thread.
type Agent interface {
	Invoke(ctx context.Context, question, threadID string) (Invocation, error)
}

// AgentFunc adapts a plain function to Agent.
type AgentFunc func(ctx context.Context, question, threadID string) (Invocation, error)

// Invoke calls f.
func (f AgentFunc) Invoke(ctx context.Context, question, threadID string) (Invocation, error) {
	return f(ctx, question, threadID)
}

// AgentInvocationError reports that the agent failed or timed out on one case.
type AgentInvocationError struct {
	ThreadID string
	Err      error
}

func (err *AgentInvocationError) Error() string {
	if err.ThreadID == "" {
		return err.Err.Error()
	}
	return fmt.Sprintf("thread %s: %v", err.ThreadID, err.Err)
}

func (err *AgentInvocationError) Unwrap() error {
	return err.Err
}

// ProviderFactory builds a model provider for a model identifier.
type ProviderFactory func(model string) (agent.Provider, error)

// AdapterOptions configures the agent built by NewAgentAdapter.
type AdapterOptions struct {
	Provider      ProviderFactory
	Executor      agent.ToolExecutor
	Tools         []agent.ToolDefinition
	Instructions  string
	Chain         string
	WalletAddress string
	Limits        call.RunLimits
	TokenCounter  agent.TokenCounter

	Verbose          bool
	VerboseWriter    io.Writer
	VerboseLogWriter io.Writer
	NoColor          bool
	Logger           *slog.Logger
}

// AgentAdapter runs the Compass agent for one model.
type AgentAdapter struct {
	model  string
	opts   AdapterOptions
	logger *slog.Logger
}

// NewAgentAdapter returns an Agent that answers questions with the given model.
func NewAgentAdapter(model string, opts AdapterOptions) (*AgentAdapter, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("model is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("provider factory is required")
	}
	if opts.TokenCounter == nil {
		opts.TokenCounter = agent.ApproxTokenCount
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("agent")
	}
	return &AgentAdapter{model: model, opts: opts, logger: logger.With(slog.String("model", model))}, nil
}

// Invoke runs one question on a fresh session. Nothing is shared between calls.
func (a *AgentAdapter) Invoke(ctx context.Context, question, threadID string) (Invocation, error) {
	provider, err := a.opts.Provider(a.model)
	if err != nil {
		return Invocation{}, &AgentInvocationError{ThreadID: threadID, Err: fmt.Errorf("provider: %w", err)}
	}
	session, err := agent.StartSession(agent.SessionConfig{
		Model:         a.model,
		ThreadID:      threadID,
		Instructions:  a.opts.Instructions,
		Chain:         a.opts.Chain,
		WalletAddress: a.opts.WalletAddress,
		Tools:         a.opts.Tools,
	})
	if err != nil {
		return Invocation{}, &AgentInvocationError{ThreadID: threadID, Err: err}
	}

	result, runErr := call.RunCall(ctx, session, provider, a.opts.Executor, question, call.RunOptions{
		TokenCounter:     a.opts.TokenCounter,
		Limits:           a.opts.Limits,
		Verbose:          a.opts.Verbose,
		VerboseWriter:    a.opts.VerboseWriter,
		VerboseLogWriter: a.opts.VerboseLogWriter,
		NoColor:          a.opts.NoColor,
		OnToolCall:       toolListenerFrom(ctx),
	})

	metrics := result.Metrics
	invocation := Invocation{
		Answer:     result.Output,
		Trajectory: metrics.Trajectory,
		Steps:      metrics.Steps,
		Tokens:     metrics.Tokens,
		WallTime:   metrics.WallTime,
	}
	if runErr != nil {
		a.logger.Debug("agent call failed", slog.String("thread_id", threadID), slog.String("reason", string(result.Reason)), slog.Any("error", runErr))
		return invocation, &AgentInvocationError{ThreadID: threadID, Err: runErr}
	}
	a.logger.Debug("agent call finished", slog.String("thread_id", threadID), slog.Int("steps", metrics.Steps), slog.Any("trajectory", metrics.Trajectory))
	return invocation, nil
}

type toolListenerKey struct{}

// withToolListener attaches a callback for tool calls made while serving ctx.
func withToolListener(ctx context.Context, fn func(agent.ToolCall)) context.Context {
	return context.WithValue(ctx, toolListenerKey{}, fn)
}

func toolListenerFrom(ctx context.Context) func(agent.ToolCall) {
	fn, _ := ctx.Value(toolListenerKey{}).(func(agent.ToolCall))
	return fn
}
