package agent

import (
	"fmt"
	"strings"
)

// DefaultInstructions is the system prompt used when none is configured.
const DefaultInstructions = `You are a DeFi assistant backed by the Compass API.
Answer the user's question by calling the provided tools. Call only the tools needed,
in the order needed, and then reply with a short final answer.`

// SessionConfig captures the inputs needed to start an agent session.
type SessionConfig struct {
	Model         string
	ThreadID      string
	Instructions  string
	Chain         string
	WalletAddress string
	Tools         []ToolDefinition
}

// ToolDefinition describes a callable tool exposed to the agent.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *ToolSchema
}

// TurnContext holds the per-session metadata used to build prompts.
type TurnContext struct {
	Model         string
	ThreadID      string
	Instructions  string
	Chain         string
	WalletAddress string
	Tools         []ToolDefinition
}

// Prompt is the fully assembled request sent to a provider.
type Prompt struct {
	Instructions string
	InputItems   []HistoryItem
	Tools        []ToolDefinition
}

// Session tracks conversation history for one thread. Sessions are never shared.
type Session struct {
	Ctx     TurnContext
	History []HistoryItem
}

// StartSession initializes a fresh session.
func StartSession(config SessionConfig) (*Session, error) {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	instructions := strings.TrimSpace(config.Instructions)
	if instructions == "" {
		instructions = DefaultInstructions
	}
	ctx := TurnContext{
		Model:         model,
		ThreadID:      strings.TrimSpace(config.ThreadID),
		Instructions:  instructions,
		Chain:         strings.TrimSpace(config.Chain),
		WalletAddress: strings.TrimSpace(config.WalletAddress),
		Tools:         config.Tools,
	}
	return &Session{Ctx: ctx, History: BuildInitialContext(ctx)}, nil
}

// BuildInitialContext returns the history a session starts with.
func BuildInitialContext(ctx TurnContext) []HistoryItem {
	if ctx.Chain == "" && ctx.WalletAddress == "" {
		return nil
	}
	return []HistoryItem{{
		Role:    "developer",
		Content: HistoryText{Text: formatEnvironmentContext(ctx)},
	}}
}

// BuildPrompt assembles a provider prompt from context and history.
func BuildPrompt(ctx TurnContext, history []HistoryItem) Prompt {
	return Prompt{
		Instructions: ctx.Instructions,
		InputItems:   history,
		Tools:        ctx.Tools,
	}
}

func formatEnvironmentContext(ctx TurnContext) string {
	var builder strings.Builder
	builder.WriteString("<environment_context>\n")
	if ctx.Chain != "" {
		builder.WriteString(fmt.Sprintf("  <chain>%s</chain>\n", ctx.Chain))
	}
	if ctx.WalletAddress != "" {
		builder.WriteString(fmt.Sprintf("  <wallet_address>%s</wallet_address>\n", ctx.WalletAddress))
	}
	builder.WriteString("</environment_context>")
	return builder.String()
}
